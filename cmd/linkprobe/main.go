package main

import (
	// Register source plugins via side-effects
	_ "linkprobe/internal/sources/http"
	_ "linkprobe/internal/sources/telegram"
)

func main() {
	Execute()
}
