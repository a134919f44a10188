package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandsRegistered(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "check-inbox", "seed", "migrate", "gmail-token"})

	for _, flag := range []string{"config", "debug", "json"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(flag), flag)
	}
}
