// relayctl drives a relay runtime from the command line.
package main

func main() {
	Execute()
}
