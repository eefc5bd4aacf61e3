package main

import (
	"github.com/priyxstudio/examination/cmd"
)

func main() {
	cmd.Execute()
}
