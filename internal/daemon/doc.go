// Package daemon holds the long-running pieces of entrykitd that sit
// around the scheduler: config hot reload and entries the daemon raises
// about itself.
package daemon
