package rbm

import "github.com/pkg/errors"

// Command is an operator instruction delivered to a running teacher. It is
// applied between batches, never in the middle of one.
type Command interface {
	Do(t *CD)
}

type command func(t *CD)

func (f command) Do(t *CD) { f(t) }

func multiplyRate(t *CD) { t.MultiplyRate() }
func divideRate(t *CD)   { t.DivideRate() }
func resetRate(t *CD)    { t.ResetRate() }
func stop(t *CD)         { t.stop() }

// Commands returns the named operator commands.
func Commands() map[string]Command {
	return map[string]Command{
		"multiply_rate": command(multiplyRate),
		"divide_rate":   command(divideRate),
		"reset_rate":    command(resetRate),
		"stop":          command(stop),
	}
}

// Lookup returns the command with the given name.
func Lookup(name string) (Command, error) {
	if c, ok := Commands()[name]; ok {
		return c, nil
	}
	return nil, errors.Errorf("unknown command %q", name)
}
