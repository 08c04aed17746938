package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hkanyike/tradingbuddy/auth"
	"github.com/hkanyike/tradingbuddy/store"
)

var (
	inviteUses int
	inviteTTL  int
	inviteCode string
)

var inviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Manage registration invite codes",
}

// The first invite has to come from somewhere before any admin exists,
// hence a CLI path that writes straight to the database.
var inviteMintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Mint a new invite code",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		st, err := store.Open(cfg.Database)
		if err != nil {
			return err
		}
		defer st.Close()

		code := inviteCode
		if code == "" {
			code = auth.NewInviteCode()
		}

		now := time.Now().UTC()
		inv := store.InviteCode{
			Code:          code,
			UsesRemaining: inviteUses,
			ExpiresAt:     now.AddDate(0, 0, inviteTTL),
			CreatedBy:     "cli",
			CreatedAt:     now,
		}
		if err := st.CreateInvite(context.Background(), inv); err != nil {
			return err
		}

		fmt.Printf("invite code: %s (uses: %d, expires: %s)\n",
			inv.Code, inv.UsesRemaining, inv.ExpiresAt.Format("2006-01-02"))
		return nil
	},
}

var inviteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List invite codes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		st, err := store.Open(cfg.Database)
		if err != nil {
			return err
		}
		defer st.Close()

		invites, err := st.ListInvites(context.Background())
		if err != nil {
			return err
		}
		if len(invites) == 0 {
			fmt.Println("no invite codes")
			return nil
		}

		fmt.Printf("%-16s %6s %-12s %s\n", "CODE", "USES", "EXPIRES", "CREATED BY")
		for _, inv := range invites {
			fmt.Printf("%-16s %6d %-12s %s\n",
				inv.Code, inv.UsesRemaining, inv.ExpiresAt.Format("2006-01-02"), inv.CreatedBy)
		}
		return nil
	},
}

func init() {
	inviteMintCmd.Flags().IntVar(&inviteUses, "uses", 1, "number of registrations the code allows")
	inviteMintCmd.Flags().IntVar(&inviteTTL, "ttl", 30, "days until the code expires")
	inviteMintCmd.Flags().StringVar(&inviteCode, "code", "", "vanity code (random if empty)")

	inviteCmd.AddCommand(inviteMintCmd)
	inviteCmd.AddCommand(inviteListCmd)
	rootCmd.AddCommand(inviteCmd)
}
