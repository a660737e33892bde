package main

import (
	cmd "github.com/cozy-creator/classify-server/cmd/classify"
)

func main() {
	cmd.Execute()
}
