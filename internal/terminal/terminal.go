package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/chrisrodz/domino-game-cli/internal/dominoes"
)

var ErrInputClosed = errors.New("INPUT_CLOSED: no more input")

// Terminal plays the human seat over a line-oriented reader and writer. It is
// both the dominoes.Input and a dominoes.Observer for the game it drives.
type Terminal struct {
	out     io.Writer
	lines   chan string
	done    chan struct{}
	stopped chan struct{} // closed once the reader goroutine returns
	once    sync.Once
}

// New starts reading lines from in. Call Close when the game is over.
func New(in io.Reader, out io.Writer) *Terminal {
	t := &Terminal{
		out:     out,
		lines:   make(chan string),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go t.scan(in)
	return t
}

// Close stops handing out input. A reader blocked inside in.Read returns
// with its next line or at EOF.
func (t *Terminal) Close() {
	t.once.Do(func() { close(t.done) })
}

func (t *Terminal) scan(in io.Reader) {
	defer close(t.stopped)
	defer close(t.lines)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case t.lines <- scanner.Text():
		case <-t.done:
			return
		}
	}
}

func (t *Terminal) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-t.done:
		return "", ErrInputClosed
	case line, ok := <-t.lines:
		if !ok {
			return "", ErrInputClosed
		}
		return strings.TrimSpace(line), nil
	}
}

// ChooseMove shows the table and asks for a move number until it gets one in range.
func (t *Terminal) ChooseMove(ctx context.Context, state *dominoes.ClientState) (int, error) {
	fmt.Fprintln(t.out)
	fmt.Fprintln(t.out, RenderScores(state))
	fmt.Fprintln(t.out, RenderBoard(state))
	fmt.Fprintln(t.out, RenderOpponents(state))
	fmt.Fprintln(t.out, RenderHand(state))
	fmt.Fprintln(t.out, RenderMoves(state.LegalMoves))

	n := len(state.LegalMoves)
	for {
		fmt.Fprintf(t.out, "Choose a move [1-%d]: ", n)
		line, err := t.readLine(ctx)
		if err != nil {
			return 0, err
		}

		choice, err := strconv.Atoi(line)
		if err != nil || choice < 1 || choice > n {
			fmt.Fprintf(t.out, "%s\n", badStyle.Render(fmt.Sprintf("Please enter a number between 1 and %d.", n)))
			continue
		}
		return choice - 1, nil
	}
}

func (t *Terminal) TurnPlayed(result dominoes.TurnResult, state *dominoes.ClientState) {
	fmt.Fprintln(t.out, RenderTurn(result, state))
}

func (t *Terminal) RoundEnded(result dominoes.RoundResult, state *dominoes.ClientState) {
	fmt.Fprintln(t.out)
	fmt.Fprintln(t.out, RenderBoard(state))
	fmt.Fprintln(t.out, RenderRound(result, state))
}
