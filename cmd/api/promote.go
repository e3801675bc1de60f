package main

import (
	"errors"
	"fmt"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"Lee_Moderation/internal/config"
	"Lee_Moderation/internal/model"
	"Lee_Moderation/internal/repository/db"
	"Lee_Moderation/internal/service"
)

const (
	emailFlag = "email"
	roleFlag  = "role"
)

var promoteFlags = map[string]cobraflags.Flag{
	emailFlag: &cobraflags.StringFlag{
		Name:  emailFlag,
		Value: "",
		Usage: "Email of the user to change (required)",
	},
	roleFlag: &cobraflags.StringFlag{
		Name:  roleFlag,
		Value: "MODERATOR",
		Usage: "New role: USER, MODERATOR or ADMIN",
	},
}

func newPromoteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Change a user's role",
		Example: `  lee-moderation promote --email alice@example.com
  lee-moderation promote --email bob@example.com --role ADMIN`,
		RunE: promoteCommand,
	}
	cobraflags.RegisterMap(cmd, promoteFlags)
	return cmd
}

func promoteCommand(cmd *cobra.Command, _ []string) error {
	email := promoteFlags[emailFlag].GetString()
	if email == "" {
		return errors.New("--email is required")
	}
	role, ok := model.ParseRole(promoteFlags[roleFlag].GetString())
	if !ok {
		return fmt.Errorf("unknown role %q", promoteFlags[roleFlag].GetString())
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(cfg.Database.Driver, cfg.Database.DSN, cfg.Database.Debug)
	if err != nil {
		return err
	}
	defer db.Close(conn)

	// promote 不签发 token，不需要会话和密钥
	users := service.NewUserService(&db.UserRepository{DB: conn}, nil, nil)
	user, err := users.Promote(cmd.Context(), email, role)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", user.Email, user.Role)
	return nil
}
