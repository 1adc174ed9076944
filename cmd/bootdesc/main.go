/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"github.com/ssargent/bootdesc/cmd/bootdesc/cmd"
	"github.com/ssargent/bootdesc/pkg/api"
)

func main() {
	// Inject the API server factory into the cmd package
	cmd.SetServerFactory(api.NewServerFactory())

	cmd.Execute()
}
