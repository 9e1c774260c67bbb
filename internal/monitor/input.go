package monitor

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// KeyMap: клавиши ручного управления позицией.
type KeyMap struct {
	Sell key.Binding
	Exit key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Sell: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "sell now"),
		),
		Exit: key.NewBinding(
			key.WithKeys("e", "ctrl+c"),
			key.WithHelp("e", "exit"),
		),
	}
}

// keyModel is a renderless bubbletea model that turns key presses into commands.
type keyModel struct {
	ctx    context.Context
	keys   KeyMap
	out    chan<- Command
	logger *zap.Logger
}

func (m keyModel) Init() tea.Cmd { return nil }

func (m keyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(k, m.keys.Sell):
		m.emit(CommandSell)
	case key.Matches(k, m.keys.Exit):
		m.emit(CommandExit)
		return m, tea.Quit
	}
	return m, nil
}

func (m keyModel) View() string { return "" }

func (m keyModel) emit(cmd Command) {
	select {
	case m.out <- cmd:
	case <-m.ctx.Done():
	default:
		m.logger.Warn("Command dropped, previous one still pending", zap.Stringer("command", cmd))
	}
}

// KeyReader reads operator keys from a terminal and exposes them as Commands.
type KeyReader struct {
	input    io.Reader
	keys     KeyMap
	commands chan Command
	logger   *zap.Logger
}

func NewKeyReader(input io.Reader, logger *zap.Logger) *KeyReader {
	return &KeyReader{
		input:    input,
		keys:     DefaultKeyMap(),
		commands: make(chan Command, 1),
		logger:   logger.Named("keys"),
	}
}

func (r *KeyReader) Commands() <-chan Command { return r.commands }

// Run blocks until ctx is cancelled, input ends or the exit key is pressed.
func (r *KeyReader) Run(ctx context.Context) error {
	r.logger.Info("⌨️  Press 's' to sell now, 'e' to exit")

	model := keyModel{ctx: ctx, keys: r.keys, out: r.commands, logger: r.logger}
	p := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(r.input),
		tea.WithOutput(io.Discard),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler(),
	)
	_, err := p.Run()
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
