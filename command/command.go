// Package command is the text boundary to a strip.Controller: one operation per line, the
// same operations the Go API offers, with parameters given by number or by name.
//
//	setParam FREQ 400000
//	setChannelParam 0 COUNT 10
//	init
//	setChannelData 0 ff0000ff 00ff00ff
//	render
//	sleep 1s
//	finalize
package command

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/Jon-Bright/ws281x/strip"
)

// Runner executes lines against one Controller. Like the Controller, it's for one goroutine.
type Runner struct {
	ctl   *strip.Controller
	log   zerolog.Logger
	sleep func(ctx context.Context, d time.Duration) error
}

type Option func(*Runner)

func WithLogger(l zerolog.Logger) Option {
	return func(r *Runner) {
		r.log = l
	}
}

func New(ctl *strip.Controller, opts ...Option) *Runner {
	r := &Runner{
		ctl:   ctl,
		log:   zerolog.Nop(),
		sleep: sleepCtx,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type op struct {
	name string
	// args is the exact argument count, or the minimum when variadic is set.
	args     int
	variadic bool
	run      func(r *Runner, ctx context.Context, args []string) error
}

var ops = map[string]op{}

func init() {
	for _, o := range []op{
		{"setParam", 2, false, (*Runner).setParam},
		{"setChannelParam", 3, false, (*Runner).setChannelParam},
		{"setChannelData", 2, true, (*Runner).setChannelData},
		{"init", 0, false, func(r *Runner, _ context.Context, _ []string) error { return r.ctl.Init() }},
		{"render", 0, false, func(r *Runner, _ context.Context, _ []string) error { return r.ctl.Render() }},
		{"finalize", 0, false, func(r *Runner, _ context.Context, _ []string) error { return r.ctl.Finalize() }},
		{"sleep", 1, false, (*Runner).sleepOp},
	} {
		ops[strings.ToLower(o.name)] = o
	}
}

// Exec runs one line. Blank lines and lines starting with # do nothing.
func (r *Runner) Exec(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	f := strings.Fields(line)
	o, ok := ops[strings.ToLower(f[0])]
	if !ok {
		return errors.Errorf("unknown command: %s", f[0])
	}
	args := f[1:]
	if len(args) < o.args || (!o.variadic && len(args) > o.args) {
		return errors.Wrapf(strip.ErrInvalidArgumentCount, "%s(): expected %d, got %d", o.name, o.args, len(args))
	}
	r.log.Debug().Str("op", o.name).Strs("args", args).Msg("exec")
	return o.run(r, ctx, args)
}

// Run executes in line by line until it ends, a line fails or ctx is done. If out isn't nil,
// every executed line gets an "OK" or "ERR: <reason>" reply there. Lines have no length limit,
// so a whole frame fits on one setChannelData line.
func (r *Runner) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	var w *bufio.Writer
	if out != nil {
		w = bufio.NewWriter(out)
		defer w.Flush()
	}
	br := bufio.NewReader(in)
	n := 0
	for {
		l, rerr := br.ReadString('\n')
		if rerr != nil && rerr != io.EOF {
			r.log.Warn().Err(rerr).Int("line", n+1).Msg("couldn't read command")
			if w != nil {
				fmt.Fprintf(w, "ERR: %v\n", rerr)
			}
			return errors.Wrap(rerr, "couldn't read commands")
		}
		if l == "" && rerr == io.EOF {
			return nil
		}
		n++
		if err := ctx.Err(); err != nil {
			return err
		}
		l = strings.TrimSpace(l)
		if l != "" && !strings.HasPrefix(l, "#") {
			if err := r.Exec(ctx, l); err != nil {
				r.log.Warn().Err(err).Int("line", n).Msg("command failed")
				if w != nil {
					fmt.Fprintf(w, "ERR: %v\n", err)
				}
				return errors.WithMessagef(err, "line %d", n)
			}
			if w != nil {
				w.WriteString("OK\n")
				if err := w.Flush(); err != nil {
					return errors.Wrap(err, "couldn't write reply")
				}
			}
		}
		if rerr == io.EOF {
			return nil
		}
	}
}

// parseInt reads an integer in Go syntax and wraps it to 32 bits, the width values have on the
// wire.
func parseInt(op string, i int, s string) (int, error) {
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, errors.Wrapf(strip.ErrInvalidArgumentType, "%s(): argument %d %q is not an integer", op, i, s)
	}
	return int(int32(v)), nil
}

func parseParam(op string, i int, s string) (strip.Param, error) {
	if p, ok := strip.ParamByName(s); ok {
		return p, nil
	}
	v, err := parseInt(op, i, s)
	if err != nil {
		return 0, errors.Wrapf(strip.ErrInvalidArgumentType, "%s(): argument %d %q is not a parameter", op, i, s)
	}
	return strip.Param(v), nil
}

func (r *Runner) setParam(_ context.Context, args []string) error {
	p, err := parseParam("setParam", 1, args[0])
	if err != nil {
		return err
	}
	v, err := parseInt("setParam", 2, args[1])
	if err != nil {
		return err
	}
	return r.ctl.SetParam(p, v)
}

func (r *Runner) setChannelParam(_ context.Context, args []string) error {
	ch, err := parseInt("setChannelParam", 1, args[0])
	if err != nil {
		return err
	}
	p, err := parseParam("setChannelParam", 2, args[1])
	if err != nil {
		return err
	}
	var v int
	if p == strip.ParamStripType {
		t, terr := strip.ParseStripType(args[2])
		if terr != nil {
			return errors.Wrapf(strip.ErrInvalidArgumentType, "setChannelParam(): argument 3 %q is not a strip type", args[2])
		}
		v = int(t)
	} else if v, err = parseInt("setChannelParam", 3, args[2]); err != nil {
		return err
	}
	return r.ctl.SetChannelParam(ch, p, v)
}

// setChannelData takes the data as hex, optionally split over several arguments.
func (r *Runner) setChannelData(_ context.Context, args []string) error {
	ch, err := parseInt("setChannelData", 1, args[0])
	if err != nil {
		return err
	}
	h := strings.Join(args[1:], "")
	h = strings.TrimPrefix(strings.TrimPrefix(h, "0x"), "0X")
	data, err := hex.DecodeString(h)
	if err != nil {
		return errors.Wrapf(strip.ErrInvalidArgumentType, "setChannelData(): argument 2 isn't hex: %v", err)
	}
	return r.ctl.SetChannelData(ch, data)
}

func (r *Runner) sleepOp(ctx context.Context, args []string) error {
	d, err := time.ParseDuration(args[0])
	if err != nil {
		return errors.Wrapf(strip.ErrInvalidArgumentType, "sleep(): argument 1 %q is not a duration", args[0])
	}
	return r.sleep(ctx, d)
}
