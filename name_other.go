//go:build !darwin

package namedsem

// MaxNameLength is the longest accepted name, counting the leading "/". Linux
// stores semaphores as "sem.<name>" files in /dev/shm, which leaves 251 bytes
// of the 255-byte NAME_MAX for the name itself.
const MaxNameLength = 251
