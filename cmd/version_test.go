package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewVersionCmd(t *testing.T) {
	versionCmd := newVersionCmd()

	assert.Equal(t, "version", versionCmd.Use)
	assert.NotEmpty(t, versionCmd.Short)
	assert.NotEmpty(t, versionCmd.Long)
	assert.NotNil(t, versionCmd.Run)
}

func TestVersionCommandExecution(t *testing.T) {
	original := rootCmd.Version
	defer func() { rootCmd.Version = original }()
	rootCmd.Version = "1.2.3-test"

	versionCmd := newVersionCmd()
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, []string{})

	assert.Equal(t, "tcrun version 1.2.3-test\n", buf.String())
}
