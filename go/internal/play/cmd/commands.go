package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mcdev12/playtime/go/internal/play/join"
	"github.com/rs/zerolog/log"
)

type boardActions interface {
	Join(ctx context.Context) error
	ShowDetail(show bool)
	Render()
}

type walletSession interface {
	Disconnect()
}

const helpText = `commands:
  join        connect the wallet, sign and join a room
  detail      show room information
  close       hide room information
  board       redraw the board
  disconnect  forget the connected wallet
  quit        exit
`

// commandLoop maps stdin lines onto board actions.
type commandLoop struct {
	board  boardActions
	wallet walletSession
	out    io.Writer
	quit   func()
}

func (c *commandLoop) run(ctx context.Context, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if !c.handle(ctx, strings.TrimSpace(scanner.Text())) {
			c.quit()
			return
		}
	}
	if err := scanner.Err(); err != nil {
		log.Warn().Err(err).Msg("stopped reading commands")
	}
}

// handle runs one command and reports whether the loop should go on.
func (c *commandLoop) handle(ctx context.Context, line string) bool {
	switch strings.ToLower(line) {
	case "":
	case "join", "j":
		err := c.board.Join(ctx)
		switch {
		case errors.Is(err, join.ErrBusy):
			fmt.Fprintln(c.out, "a join is already in progress")
		case errors.Is(err, join.ErrAlreadyJoined):
			fmt.Fprintln(c.out, "already in a room")
		case err != nil:
			// the notifier already told the user
			log.Debug().Err(err).Str("kind", join.KindOf(err).String()).Msg("join failed")
		}
	case "detail", "d":
		c.board.ShowDetail(true)
	case "close", "c":
		c.board.ShowDetail(false)
	case "board", "b":
		c.board.Render()
	case "disconnect":
		c.wallet.Disconnect()
		fmt.Fprintln(c.out, "wallet disconnected")
	case "quit", "exit", "q":
		return false
	case "help", "h", "?":
		fmt.Fprint(c.out, helpText)
	default:
		fmt.Fprintf(c.out, "unknown command %q, try help\n", line)
	}
	return true
}
