// Command reportctl runs the expense report pipeline on a file from disk.
package main

func main() {
	Execute()
}
