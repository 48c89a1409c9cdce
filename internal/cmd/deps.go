package cmd

import (
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/salmonumbrella/pms-cli/internal/auth"
	"github.com/salmonumbrella/pms-cli/internal/config"
	"github.com/salmonumbrella/pms-cli/internal/secrets"
)

var (
	openSecretsStore = secrets.OpenDefault
	newClientFunc    = newClientFromCredentials
	loginFunc        = auth.Login
	envGet           = os.Getenv
	loadDotEnvFunc   = func() error { return config.LoadDotEnv() }
	runProgramFunc   = func(m tea.Model, opts ...tea.ProgramOption) (tea.Model, error) {
		return tea.NewProgram(m, opts...).Run()
	}
	isInteractiveFunc = func(in io.Reader, out io.Writer) bool {
		return isTerminalReader(in) && isTerminal(out)
	}
)
