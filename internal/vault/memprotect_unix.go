//go:build linux || darwin

package vault

import "syscall"

// lockMemory pins the key's page(s) so it is never swapped to disk.
// Failure is ignored (process may lack CAP_IPC_LOCK).
func lockMemory(b []byte) {
	_ = syscall.Mlock(b)
}

func unlockMemory(b []byte) {
	_ = syscall.Munlock(b)
}

// disableCoreDumps sets RLIMIT_CORE to 0 so key material never lands in a core file.
func disableCoreDumps() {
	_ = syscall.Setrlimit(syscall.RLIMIT_CORE, &syscall.Rlimit{Cur: 0, Max: 0})
}
