// Package handle tracks native addresses handed to Go by a C library.
//
// Every address crossing the boundary is wrapped in a Handle that records
// who owns the native object:
//
//   - Owned: Go must release it exactly once, through the Releaser supplied
//     at wrap time (typically a catalog proc such as SDL_DestroyTray).
//   - Borrowed: the native side owns it; Go never releases it.
//   - Null: the address was zero.
//
// Releasing a Borrowed or Null handle is a no-op. Releasing the same Owned
// handle twice is not detected, mirroring the native library; resource
// wrappers keep their own destroyed flags.
//
// # Observers
//
// Observers receive EventWrapped and EventReleased notifications, which
// tests use to check teardown order.
package handle
