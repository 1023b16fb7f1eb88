package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/bookbound/library/internal/core/domain"
	"github.com/bookbound/library/internal/core/ports"
	"github.com/bookbound/library/internal/core/service"
)

// operator is the actor used for admin commands run from a shell. It has no
// user row behind it.
var operator = domain.Actor{Role: domain.RoleAdmin}

func newSeedCardsCmd() *cobra.Command {
	var (
		count  int
		prefix string
	)
	cmd := &cobra.Command{
		Use:   "seed-cards",
		Short: "Create a batch of free membership cards",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			cards, err := a.cardSvc.Seed(ctx, operator, count, prefix)
			if err != nil {
				return err
			}
			for _, c := range cards {
				fmt.Fprintln(cmd.OutOrStdout(), c.SerialNumber)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "created %d cards\n", len(cards))
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 100, "number of cards to create")
	cmd.Flags().StringVar(&prefix, "prefix", service.DefaultSerialPrefix, "serial number prefix")
	return cmd
}

func newCreateAdminCmd() *cobra.Command {
	var in ports.CreateAdminInput
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			in.Password = password

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.userSvc.CreateAdmin(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (id %d)\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "admin email")
	cmd.Flags().StringVar(&in.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&in.LastName, "last-name", "", "last name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("first-name")
	_ = cmd.MarkFlagRequired("last-name")
	return cmd
}

// readPassword prompts without echo on a terminal and reads one line otherwise.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		first, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		fmt.Fprint(prompt, "Confirm password: ")
		second, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		if string(first) != string(second) {
			return "", errors.New("passwords do not match")
		}
		return string(first), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
