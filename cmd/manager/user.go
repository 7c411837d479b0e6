package main

import (
	"errors"
	"fmt"

	"github.com/neuralninjas/wellness/internal/adapters/config"
	"github.com/neuralninjas/wellness/internal/adapters/storage"
	"github.com/neuralninjas/wellness/internal/core/auth"
	"github.com/neuralninjas/wellness/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	newUsername string
	newEmail    string
	newPassword string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

// userCreateCmd создает пользователя в хранилище сервиса авторизации.
var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account",
	RunE:  runUserCreate,
}

func init() {
	userCreateCmd.Flags().StringVarP(&newUsername, "username", "u", "", "username")
	userCreateCmd.Flags().StringVarP(&newEmail, "email", "e", "", "email")
	userCreateCmd.Flags().StringVarP(&newPassword, "password", "p", "", "password")
	userCmd.AddCommand(userCreateCmd)
}

func runUserCreate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Init()
	if err != nil {
		return err
	}

	store, err := storage.New(cfg.Store)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	a, err := auth.New(logger.Nop(), []byte(cfg.SecretKey), store)
	if err != nil {
		return err
	}

	user, err := a.Register(cmd.Context(), newUsername, newEmail, newPassword)
	if err != nil {
		return errors.Join(errors.New("user not created"), err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "User created: id=%d username=%s email=%s\n", user.ID, user.Username, user.Email)
	return nil
}
