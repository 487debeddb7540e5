package main

import (
	"fmt"

	"github.com/AurumGate/AurumGate-Portal/api"
	"github.com/AurumGate/AurumGate-Portal/utils"
)

var envPath string = "."

func main() {

	_, err := utils.LoadConfig(envPath)
	if err != nil {
		panic(fmt.Sprintf("Could not load config: %v", err))
	}

	server := api.NewServer(envPath)
	server.Start()
}
