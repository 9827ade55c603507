// Command habitctl logs habits and inspects the stored stats from the shell.
package main

import "github.com/sweeney/habit-tracker/cmd/habitctl/root"

func main() {
	root.Execute()
}
