package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/common"
)

// getSimpleText and getPassword are swapped out in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

func (a *App) printProfile(p *client.Profile) {
	if p == nil {
		return
	}
	fmt.Fprintf(a.out, "  id:       %s\n  username: %s\n  email:    %s\n  avatar:   %s\n",
		p.ID, p.Username, p.Email, p.Avatar)
}

func (a *App) Signup(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)
	confirm, err := getPassword(a.out, "Confirm password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)
	avatar, err := getSimpleText(a.reader, "Avatar file (empty for default)", a.out)
	if err != nil {
		return err
	}

	p, err := a.api.Signup(ctx, client.SignupRequest{
		Username:        username,
		Email:           email,
		Password:        password,
		ConfirmPassword: confirm,
		AvatarPath:      avatar,
	})
	if err != nil {
		return a.report(err)
	}

	fmt.Fprintln(a.out, "Account created. You can log in now.")
	a.printProfile(p)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	p, err := a.api.Login(ctx, email, password)
	if err != nil {
		return a.report(err)
	}

	a.profile = p
	fmt.Fprintf(a.out, "Logged in as %s\n", p.Username)
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	p, err := a.api.CheckSession(ctx)
	if err != nil {
		return a.report(err)
	}
	a.profile = p
	a.printProfile(p)
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	p, err := a.api.Refresh(ctx)
	if err != nil {
		return a.report(err)
	}
	if p != nil {
		a.profile = p
	}
	fmt.Fprintln(a.out, "Access token refreshed")
	return nil
}

func (a *App) Update(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "New username (empty to keep)", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "New email (empty to keep)", a.out)
	if err != nil {
		return err
	}
	avatar, err := getSimpleText(a.reader, "New avatar file (empty to keep)", a.out)
	if err != nil {
		return err
	}

	p, err := a.api.UpdateProfile(ctx, client.UpdateRequest{
		Username:   optional(username),
		Email:      optional(email),
		AvatarPath: avatar,
	})
	if err != nil {
		return a.report(err)
	}

	a.profile = p
	fmt.Fprintln(a.out, "Profile updated")
	a.printProfile(p)
	return nil
}

func (a *App) Count(ctx context.Context) error {
	n, err := a.api.ActiveUsers(ctx)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "Registered users: %d\n", n)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.api.Logout(ctx); err != nil {
		return a.report(err)
	}
	a.profile = nil
	fmt.Fprintln(a.out, "Logged out")
	return nil
}
