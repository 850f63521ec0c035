package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/bquezada-bit/Silvacentinel/internal/account"
	"github.com/bquezada-bit/Silvacentinel/internal/models"
	"github.com/bquezada-bit/Silvacentinel/internal/storage"
	"github.com/bquezada-bit/Silvacentinel/internal/validation"

	"github.com/spf13/cobra"
)

type createAdminFlags struct {
	email     string
	password  string
	firstName string
	lastName  string
}

// newCreateAdminCmd bootstraps an administrator. Sign-up always creates
// public accounts, so this is the only way to get the first admin.
func newCreateAdminCmd() *cobra.Command {
	var flags createAdminFlags

	cmd := &cobra.Command{
		Use:   "create-admin <username>",
		Short: "Create an administrator account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withStorage(ctx, func(e *env) error {
				in := account.RegisterInput{
					Username:        args[0],
					Email:           flags.email,
					FirstName:       flags.firstName,
					LastName:        flags.lastName,
					Password:        flags.password,
					PasswordConfirm: flags.password,
				}
				svc := account.NewService(e.store, e.log)
				a, err := svc.Register(ctx, in, cliIP)
				if ve, ok := validation.As(err); ok {
					return fmt.Errorf("invalid input: %s", ve.Error())
				}
				if err != nil {
					return err
				}
				err = e.store.InTx(ctx, func(tx storage.Storage) error {
					a.Role = models.RoleAdmin
					if err := tx.UpdateAccount(ctx, a); err != nil {
						return err
					}
					return tx.AppendActivity(ctx, &models.ActivityLogEntry{
						ActorID: &a.ID,
						Action:  "Cuenta de administrador creada desde la consola",
						IP:      cliIP,
					})
				})
				if err != nil {
					return err
				}
				fmt.Printf("Administrator %s created (id %d).\n", a.Username, a.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&flags.email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&flags.password, "password", "", "password (required)")
	cmd.Flags().StringVar(&flags.firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&flags.lastName, "last-name", "", "last name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newSetRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-role <username> <usuario|revisor|admin>",
		Short: "Change the role of an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withStorage(ctx, func(e *env) error {
				actor, err := e.actor(ctx)
				if err != nil {
					return err
				}
				target, err := e.account(ctx, args[0])
				if err != nil {
					return err
				}
				a, err := account.NewService(e.store, e.log).ChangeRole(ctx, actor, target.ID, args[1])
				if err != nil {
					return err
				}
				fmt.Printf("%s is now %s.\n", a.Username, a.Role.Label())
				return nil
			})
		},
	}
}

func newToggleActiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle-active <username>",
		Short: "Activate or deactivate an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withStorage(ctx, func(e *env) error {
				actor, err := e.actor(ctx)
				if err != nil {
					return err
				}
				target, err := e.account(ctx, args[0])
				if err != nil {
					return err
				}
				a, err := account.NewService(e.store, e.log).ToggleActive(ctx, actor, target.ID)
				if err != nil {
					return err
				}
				state := "deactivated"
				if a.Active {
					state = "activated"
				}
				fmt.Printf("%s %s.\n", a.Username, state)
				return nil
			})
		},
	}
}

func newDeleteAccountCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete-account <username>",
		Short: "Delete an account together with its complaints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withStorage(ctx, func(e *env) error {
				actor, err := e.actor(ctx)
				if err != nil {
					return err
				}
				target, err := e.account(ctx, args[0])
				if err != nil {
					return err
				}
				if !force && !confirmAction(fmt.Sprintf("Delete %s and all of their complaints?", target.Username)) {
					fmt.Println("Cancelled.")
					return nil
				}
				if err := account.NewService(e.store, e.log).Delete(ctx, actor, target.ID); err != nil {
					return err
				}
				fmt.Printf("%s deleted.\n", target.Username)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt")
	return cmd
}

func confirmAction(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes"
}
