package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/Atomik-Global/atomik-wallet/internal/storage"
)

var pinCommand = cli.Command{
	Name:  "pin",
	Usage: "manage the app unlock PIN",
	Subcommands: []*cli.Command{
		{Name: "set", Usage: "set or replace the PIN", Action: pinSetAction},
		{Name: "verify", Usage: "check a PIN", Action: pinVerifyAction},
		{Name: "remove", Usage: "remove the PIN", Action: pinRemoveAction},
	},
}

func preferences(e *env) *storage.Preferences {
	return storage.NewPreferences(e.kv, storage.DefaultParams())
}

func pinSetAction(c *cli.Context) error {
	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	pin, err := readPassword("New PIN: ")
	if err != nil {
		return err
	}
	again, err := readPassword("Repeat PIN: ")
	if err != nil {
		return err
	}
	if string(pin) != string(again) {
		return errors.New("PINs do not match")
	}
	if err := preferences(e).SetPin(string(pin)); err != nil {
		return err
	}
	fmt.Println("PIN set.")
	return nil
}

func pinVerifyAction(c *cli.Context) error {
	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	prefs := preferences(e)
	has, err := prefs.HasPin()
	if err != nil {
		return err
	}
	if !has {
		return errors.New("no PIN set")
	}
	pin, err := readPassword("PIN: ")
	if err != nil {
		return err
	}
	ok, err := prefs.VerifyPin(string(pin))
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("wrong PIN")
	}
	fmt.Println("PIN OK.")
	return nil
}

func pinRemoveAction(c *cli.Context) error {
	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := preferences(e).RemovePin(); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	fmt.Println("PIN removed.")
	return nil
}
