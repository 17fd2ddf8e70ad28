// Command semctl creates, inspects, waits on, posts to and unlinks POSIX
// named semaphores from the shell.
package main

func main() {
	Execute()
}
