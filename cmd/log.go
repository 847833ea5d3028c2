package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
)

// Logger builds a logfmt logger writing to w at the given level, so every
// subcommand's output goes through go-ethereum/log rather than the bare
// standard log package.
func Logger(w io.Writer, lvl slog.Level) log.Logger {
	return log.NewLogger(log.LogfmtHandlerWithLevel(w, lvl))
}

// ConsoleWriter adapts a logger into the io.Writer the machine's HTIF
// putchar device writes guest console output to.
type ConsoleWriter struct {
	Log log.Logger
	buf []byte
}

func (c *ConsoleWriter) Write(b []byte) (int, error) {
	for _, ch := range b {
		if ch == '\n' {
			c.Log.Info("", "console", string(c.buf))
			c.buf = c.buf[:0]
			continue
		}
		c.buf = append(c.buf, ch)
	}
	return len(b), nil
}

// HexU64 lazily formats a 64-bit integer as hex for structured log
// attributes.
type HexU64 uint64

func (v HexU64) String() string { return fmt.Sprintf("0x%x", uint64(v)) }

func (v HexU64) MarshalText() ([]byte, error) {
	return []byte(hexutil.EncodeUint64(uint64(v))), nil
}
