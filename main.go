package main

import "github.com/KarimYounus/jobbies/cmd"

func main() {
	cmd.Execute()
}
