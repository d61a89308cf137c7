// Package profiles implements the multi-profile distribution protocol: a
// FIFO lock serializing every profile switch, a switch-and-confirm poller
// layered over the backend's fire-and-forget loadProfile, and the
// distributor that replicates notes into target profiles while always
// restoring the home profile.
//
// The backend holds exactly one active profile per process, so everything
// here is built around that single shared slot.
package profiles
