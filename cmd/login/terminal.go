package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/BradenHooton/haulgate/internal/challenge"
	"github.com/BradenHooton/haulgate/internal/credentials"
	"github.com/BradenHooton/haulgate/internal/models"
)

var errQuit = errors.New("quit")

// navigation is one route change requested by the login flow
type navigation struct {
	route  string
	notice string
}

// navChannel turns Navigate calls into values the input loop can select on
type navChannel chan navigation

func newNavChannel() navChannel {
	return make(navChannel, 4)
}

func (n navChannel) Navigate(route, notice string) {
	select {
	case n <- navigation{route: route, notice: notice}:
	default:
	}
}

// action is a command that is not a reducer event
type action int

const (
	actionNone action = iota
	actionSubmit
	actionResend
	actionBack
	actionQuit
	actionHelp
)

// command is one parsed input line on the code screen
type command struct {
	event  challenge.Event
	action action
}

// parseCommand maps a line typed on the code screen to an event or action.
// Slots are numbered from 1 for the user.
func parseCommand(line string) (command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return command{}, nil
	}
	if !strings.HasPrefix(line, ":") {
		return command{event: challenge.Pasted{Text: line}}, nil
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case ":submit":
		return command{action: actionSubmit}, nil
	case ":resend":
		return command{action: actionResend}, nil
	case ":back":
		return command{action: actionBack}, nil
	case ":quit", ":q":
		return command{action: actionQuit}, nil
	case ":help", ":h":
		return command{action: actionHelp}, nil
	case ":bs":
		return command{event: challenge.Backspace{}}, nil
	case ":left":
		return command{event: challenge.ArrowLeft{}}, nil
	case ":right":
		return command{event: challenge.ArrowRight{}}, nil
	case ":trust":
		return command{event: challenge.TrustToggled{}}, nil
	case ":focus":
		if len(fields) != 2 {
			return command{}, fmt.Errorf("usage: :focus N")
		}
		slot, err := parseSlot(fields[1])
		if err != nil {
			return command{}, err
		}
		return command{event: challenge.FocusSlot{Slot: slot}}, nil
	case ":d":
		if len(fields) != 3 {
			return command{}, fmt.Errorf("usage: :d N DIGIT")
		}
		slot, err := parseSlot(fields[1])
		if err != nil {
			return command{}, err
		}
		return command{event: challenge.DigitEntered{Slot: slot, Char: fields[2]}}, nil
	}
	return command{}, fmt.Errorf("unknown command %q (:help lists commands)", fields[0])
}

func parseSlot(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > models.OTPLength {
		return 0, fmt.Errorf("slot must be 1-%d", models.OTPLength)
	}
	return n - 1, nil
}

// render draws the code screen as a single block of text
func render(st challenge.State) string {
	var b strings.Builder

	for i, d := range st.Entry.Digits {
		if d == "" {
			d = "_"
		}
		if i == st.Entry.Focus && st.Phase != challenge.PhaseVerified {
			fmt.Fprintf(&b, "[%s]", d)
		} else {
			fmt.Fprintf(&b, " %s ", d)
		}
	}
	b.WriteString("\n")

	trust := " "
	if st.TrustDevice {
		trust = "x"
	}
	fmt.Fprintf(&b, "[%s] Trust this device for 30 days\n", trust)

	switch {
	case st.Phase == challenge.PhaseVerified:
	case st.Resend.HardLocked:
		b.WriteString("Resend unavailable. Too many requests.\n")
	case st.Resend.CooldownSeconds > 0:
		fmt.Fprintf(&b, "Resend available in %ds\n", st.Resend.CooldownSeconds)
	default:
		b.WriteString("Resend available (:resend)\n")
	}

	if st.Error != nil {
		fmt.Fprintf(&b, "! %s\n", st.Error.Message)
	}
	if st.Notice != "" {
		fmt.Fprintf(&b, "%s\n", st.Notice)
	}
	return b.String()
}

const helpText = `Type or paste the code, or use:
  :d N DIGIT   enter DIGIT in slot N      :bs      backspace
  :left :right move focus                 :focus N focus slot N
  :trust       toggle device trust        :submit  verify the code
  :resend      send a new code            :back    start over
  :quit        exit
`

// terminal runs the interactive login on line-oriented input
type terminal struct {
	in            *bufio.Scanner
	out           io.Writer
	login         *credentials.Handler
	newController func() *challenge.Controller
	nav           navChannel
}

func (t *terminal) run(ctx context.Context) error {
	for {
		out, err := t.credentialsStep(ctx)
		if err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			return err
		}

		switch out.Kind {
		case credentials.OutcomeFailure:
			if out.Error != nil {
				fmt.Fprintf(t.out, "! %s\n", out.Error.Message)
			}
		case credentials.OutcomeRedirect:
			if out.Error != nil {
				fmt.Fprintf(t.out, "! %s\n", out.Error.Message)
			}
			fmt.Fprintf(t.out, "-> %s\n", out.Destination)
		case credentials.OutcomeSession:
			return t.awaitLanding(ctx)
		case credentials.OutcomeChallenge:
			done, err := t.codeStep(ctx)
			if err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				return err
			}
			if done {
				return nil
			}
		}
	}
}

func (t *terminal) prompt(label string) (string, error) {
	fmt.Fprint(t.out, label)
	if !t.in.Scan() {
		if err := t.in.Err(); err != nil {
			return "", err
		}
		return "", errQuit
	}
	return t.in.Text(), nil
}

func (t *terminal) credentialsStep(ctx context.Context) (credentials.Outcome, error) {
	fmt.Fprintln(t.out, "Sign in")
	email, err := t.prompt("Email: ")
	if err != nil {
		return credentials.Outcome{}, err
	}
	password, err := t.prompt("Password: ")
	if err != nil {
		return credentials.Outcome{}, err
	}
	return t.login.Submit(ctx, email, password), nil
}

// codeStep runs the code screen. It reports true once the user has landed.
func (t *terminal) codeStep(ctx context.Context) (bool, error) {
	ctrl := t.newController()
	defer ctrl.Close()

	if err := ctrl.Open(); err != nil {
		t.drainNavigation()
		return false, nil
	}

	ch := ctrl.Challenge()
	fmt.Fprintf(t.out, "We sent a 6-digit code to %s. :help lists commands.\n", ch.Email)

	var mu sync.Mutex
	lastCooldown := ctrl.State().Resend.CooldownSeconds
	ctrl.Subscribe(func(st challenge.State) {
		mu.Lock()
		defer mu.Unlock()
		if lastCooldown > 0 && st.Resend.CooldownSeconds == 0 && !st.Resend.HardLocked && st.Phase != challenge.PhaseVerified {
			fmt.Fprintln(t.out, "\nYou can request a new code now (:resend).")
		}
		lastCooldown = st.Resend.CooldownSeconds
	})

	fmt.Fprint(t.out, render(ctrl.State()))
	for {
		line, err := t.prompt("> ")
		if err != nil {
			return false, err
		}

		cmd, err := parseCommand(line)
		if err != nil {
			fmt.Fprintf(t.out, "! %s\n", err)
			continue
		}

		var st challenge.State
		switch cmd.action {
		case actionQuit:
			return false, errQuit
		case actionHelp:
			fmt.Fprint(t.out, helpText)
			continue
		case actionBack:
			ctrl.StartOver()
			t.drainNavigation()
			t.login.Reset()
			return false, nil
		case actionSubmit:
			st = ctrl.Submit(ctx)
		case actionResend:
			st = ctrl.Resend(ctx)
		default:
			if cmd.event == nil {
				st = ctrl.State()
			} else {
				st = ctrl.Dispatch(cmd.event)
			}
		}

		fmt.Fprint(t.out, render(st))

		if st.Phase == challenge.PhaseVerified && st.Destination != "" {
			return true, t.awaitLanding(ctx)
		}
		if st.Error != nil && st.Error.Redirect != "" {
			t.drainNavigation()
			return false, nil
		}
	}
}

// awaitLanding blocks until the delayed post-login navigation fires
func (t *terminal) awaitLanding(ctx context.Context) error {
	select {
	case n := <-t.nav:
		if n.notice != "" {
			fmt.Fprintln(t.out, n.notice)
		}
		fmt.Fprintf(t.out, "-> %s\n", n.route)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *terminal) drainNavigation() {
	for {
		select {
		case n := <-t.nav:
			if n.notice != "" {
				fmt.Fprintln(t.out, n.notice)
			}
			fmt.Fprintf(t.out, "-> %s\n", n.route)
		default:
			return
		}
	}
}
