// Package theme loads the CSS that styles entrykitd popups.
// Themes are looked up in ~/.config/entrykit/themes/ first and then among
// the bundled themes, and user themes are reloaded when their files change.
package theme
