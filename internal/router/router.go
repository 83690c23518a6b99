// Package router matches incoming message text against registered commands.
package router

import (
	"regexp"
	"strings"
	"sync"

	"github.com/cornellsh/signal-client/internal/ctxutil"
)

// HandlerFunc is the operation a command runs once dispatch decides to
// execute it.
type HandlerFunc func(ctx ctxutil.Context) error

// Trigger is a single pattern a command matches on: either a literal prefix
// or a compiled regular expression searched anywhere in the text.
type Trigger struct {
	Literal string
	Regex   *regexp.Regexp
}

// NewLiteralTrigger builds a prefix-match trigger.
func NewLiteralTrigger(prefix string) Trigger {
	return Trigger{Literal: prefix}
}

// NewRegexTrigger builds a substring-match trigger from a compiled pattern.
func NewRegexTrigger(re *regexp.Regexp) Trigger {
	return Trigger{Regex: re}
}

func (t Trigger) matches(text string) bool {
	if t.Regex != nil {
		return t.Regex.MatchString(text)
	}
	return strings.HasPrefix(text, t.Literal)
}

// Command is a registered command: an ordered set of triggers, an optional
// source whitelist, and the handler to invoke on a match.
type Command struct {
	Triggers      []Trigger
	Whitelist     map[string]struct{}
	CaseSensitive bool
	Handle        HandlerFunc
}

// IsWhitelisted reports whether source may invoke this command. An empty
// whitelist means the command is open to all sources.
func (c *Command) IsWhitelisted(source string) bool {
	if len(c.Whitelist) == 0 {
		return true
	}
	_, ok := c.Whitelist[source]
	return ok
}

// CommandRouter holds an ordered list of commands and matches text against
// their triggers in registration order.
type CommandRouter struct {
	mu         sync.RWMutex
	commands   []*Command
	registered map[*Command]struct{}
}

// New constructs an empty CommandRouter.
func New() *CommandRouter {
	return &CommandRouter{
		registered: make(map[*Command]struct{}),
	}
}

// Register appends a command. Registration is idempotent on object identity:
// registering the same *Command pointer twice is a no-op.
func (r *CommandRouter) Register(cmd *Command) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.registered[cmd]; exists {
		return
	}
	r.commands = append(r.commands, cmd)
	r.registered[cmd] = struct{}{}
}

// Match returns the first command whose trigger matches text, along with the
// matching trigger. Whitelisting is intentionally not evaluated here — it is
// a dispatch-time concern (see internal/workerpool).
func (r *CommandRouter) Match(text string) (*Command, *Trigger) {
	if text == "" {
		return nil, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, cmd := range r.commands {
		candidate := text
		if !cmd.CaseSensitive {
			candidate = strings.ToLower(candidate)
		}
		for i := range cmd.Triggers {
			trigger := cmd.Triggers[i]
			matchAgainst := trigger
			if !cmd.CaseSensitive && matchAgainst.Literal != "" {
				matchAgainst.Literal = strings.ToLower(matchAgainst.Literal)
			}
			if matchAgainst.matches(candidate) {
				return cmd, &trigger
			}
		}
	}
	return nil, nil
}

// Commands returns a snapshot of the registered commands in registration
// order.
func (r *CommandRouter) Commands() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Command, len(r.commands))
	copy(out, r.commands)
	return out
}
