package main

import (
	"fmt"

	"github.com/jonathan/cv-builder/internal/auth"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/jonathan/cv-builder/internal/validation"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage your CV Builder account",
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	Long:  "Creates an account. Missing values are prompted for; passwords are read without echo.",
	Args:  cobra.NoArgs,
	RunE:  runRegister,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the issued tokens",
	Args:  cobra.NoArgs,
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and forget the stored tokens",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var verifyCmd = &cobra.Command{
	Use:   "verify <token>",
	Short: "Verify your email with the token from the verification link",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

var resendCmd = &cobra.Command{
	Use:   "resend",
	Short: "Send another verification email",
	Args:  cobra.NoArgs,
	RunE:  runResend,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether you are logged in",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var (
	authName     string
	authEmail    string
	authPassword string
)

func init() {
	registerCmd.Flags().StringVar(&authName, "name", "", "Full name")
	for _, c := range []*cobra.Command{registerCmd, loginCmd, resendCmd} {
		c.Flags().StringVar(&authEmail, "email", "", "Email address")
	}
	for _, c := range []*cobra.Command{registerCmd, loginCmd} {
		c.Flags().StringVar(&authPassword, "password", "", "Password (prompted when omitted)")
	}

	authCmd.AddCommand(registerCmd, loginCmd, logoutCmd, verifyCmd, resendCmd, statusCmd)
	rootCmd.AddCommand(authCmd)
}

func runRegister(cmd *cobra.Command, _ []string) error {
	a := current
	p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())

	req := types.RegisterRequest{}
	var err error
	if req.FullName, err = p.valueOr(authName, "Full name", false); err != nil {
		return err
	}
	if req.Email, err = p.valueOr(authEmail, "Email", false); err != nil {
		return err
	}
	if req.Password, err = p.valueOr(authPassword, "Password", true); err != nil {
		return err
	}
	req.ConfirmPassword = authPassword
	if req.ConfirmPassword == "" {
		if req.ConfirmPassword, err = p.Secret("Confirm password"); err != nil {
			return err
		}
	}
	if err := validation.Struct(&req); err != nil {
		return err
	}

	if _, err := a.client.Register(cmd.Context(), &req); err != nil {
		return err
	}
	a.notify.Success("Registration successful",
		fmt.Sprintf("We sent a verification link to %s. Run `cvbuilder auth verify <token>` once you have it.", req.Email))
	return nil
}

func runLogin(cmd *cobra.Command, _ []string) error {
	a := current
	p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())

	req := types.LoginRequest{}
	var err error
	if req.Email, err = p.valueOr(authEmail, "Email", false); err != nil {
		return err
	}
	if req.Password, err = p.valueOr(authPassword, "Password", true); err != nil {
		return err
	}
	if err := validation.Struct(&req); err != nil {
		return err
	}

	resp, err := a.client.Login(cmd.Context(), &req)
	if err != nil {
		return err
	}
	if err := a.session.Login(cmd.Context(), resp); err != nil {
		return fmt.Errorf("failed to store tokens: %w", err)
	}

	name := req.Email
	if resp.User != nil && resp.User.FullName != "" {
		name = resp.User.FullName
	}
	a.notify.Success("Logged in", "Welcome back, "+name)
	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	a := current
	if err := a.session.Logout(cmd.Context()); err != nil {
		return err
	}
	a.notify.Info("Logged out", "")
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	a := current
	resp, err := a.client.VerifyEmail(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	msg := resp.Message
	if msg == "" {
		msg = "You can now log in."
	}
	a.notify.Success("Email verified", msg)
	return nil
}

func runResend(cmd *cobra.Command, _ []string) error {
	a := current
	p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())

	email, err := p.valueOr(authEmail, "Email", false)
	if err != nil {
		return err
	}
	req := types.ResendVerificationRequest{Email: email}
	if err := validation.Struct(&req); err != nil {
		return err
	}
	resp, err := a.client.ResendVerification(cmd.Context(), req.Email)
	if err != nil {
		return err
	}
	msg := resp.Message
	if msg == "" {
		msg = "Check your inbox for a new verification link."
	}
	a.notify.Success("Verification email sent", msg)
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	a := current
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	token, err := a.session.Token(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		_, _ = fmt.Fprintln(out, "Not logged in")
		return nil
	}
	_, _ = fmt.Fprintf(out, "Logged in to %s\n", a.client.BaseURL())
	if claims, err := auth.ParseClaims(token); err == nil && claims.ExpiresAt != nil {
		_, _ = fmt.Fprintf(out, "Access token expires %s\n", claims.ExpiresAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}
