package main

import (
	"errors"
	"reflect"
	"testing"
)

func TestClosers_Close(t *testing.T) {
	var order []int
	var cl closers
	for i := 0; i < 3; i++ {
		i := i
		cl.add(closerFunc(func() error {
			order = append(order, i)
			if i == 1 {
				return errors.New("busy")
			}
			return nil
		}))
	}
	if err := cl.Close(); err == nil || err.Error() != "busy" {
		t.Errorf("Close() = %v, want busy", err)
	}
	if want := []int{2, 1, 0}; !reflect.DeepEqual(order, want) {
		t.Errorf("close order %v, want %v", order, want)
	}
}

func TestPinByName_Unknown(t *testing.T) {
	if _, err := pinByName("NO_SUCH_PIN"); err == nil {
		t.Error("expected error")
	}
}
