package cmd

import (
	"testing"
)

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{
		"ask":     false,
		"index":   false,
		"status":  false,
		"version": false,
	}

	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}

	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered on root", name)
		}
	}
}

func TestAskRequiresExactlyOneArg(t *testing.T) {
	if err := askCmd.Args(askCmd, nil); err == nil {
		t.Error("ask accepted zero arguments")
	}
	if err := askCmd.Args(askCmd, []string{"q1", "q2"}); err == nil {
		t.Error("ask accepted two arguments")
	}
	if err := askCmd.Args(askCmd, []string{"a question"}); err != nil {
		t.Errorf("ask rejected a single argument: %v", err)
	}
}
