// Command seed inserts users into the PostgreSQL users table.
//
// Users come from repeated -user name:email flags or a JSON array file
// ([{"name":"...","email":"..."}]). Existing emails are skipped.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/usersvc/usersvc/internal/config"
	"github.com/usersvc/usersvc/internal/model"
	"github.com/usersvc/usersvc/internal/repository"
)

type seedUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type result struct {
	Created []*model.User `json:"created"`
	Skipped []string      `json:"skipped"`
}

// userFlags collects repeated -user values.
type userFlags []seedUser

func (f *userFlags) String() string {
	parts := make([]string, 0, len(*f))
	for _, u := range *f {
		parts = append(parts, u.Name+":"+u.Email)
	}
	return strings.Join(parts, ",")
}

func (f *userFlags) Set(value string) error {
	u, err := parseUser(value)
	if err != nil {
		return err
	}
	*f = append(*f, u)
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	var users userFlags
	var (
		databaseURL = flag.String("database-url", cfg.DatabaseURL(), "PostgreSQL connection string")
		file        = flag.String("file", "", "JSON file with an array of {name,email}; - reads stdin")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Var(&users, "user", "User to create as name:email (repeatable)")
	flag.Parse()

	if *file != "" {
		fromFile, err := readUsers(*file)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		users = append(users, fromFile...)
	}
	if len(users) == 0 {
		fmt.Fprintln(os.Stderr, "nothing to seed; pass -user or -file")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL, 2)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	if err := repo.EnsureSchema(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "ensure schema:", err)
		os.Exit(1)
	}

	out, err := seed(ctx, repo, users)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	if err := render(os.Stdout, *format, out); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// seed creates each user, skipping emails that already exist.
func seed(ctx context.Context, store repository.UserStore, users []seedUser) (*result, error) {
	out := &result{Created: []*model.User{}, Skipped: []string{}}
	for _, u := range users {
		created, err := store.CreateUser(ctx, u.Name, u.Email)
		if errors.Is(err, repository.ErrEmailExists) {
			out.Skipped = append(out.Skipped, u.Email)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", u.Email, err)
		}
		out.Created = append(out.Created, created)
	}
	return out, nil
}

func parseUser(value string) (seedUser, error) {
	name, email, ok := strings.Cut(value, ":")
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if !ok || name == "" || email == "" {
		return seedUser{}, fmt.Errorf("invalid user %q; want name:email", value)
	}
	return seedUser{Name: name, Email: email}, nil
}

func readUsers(path string) ([]seedUser, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	var users []seedUser
	if err := json.NewDecoder(r).Decode(&users); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	for i, u := range users {
		if u.Name == "" || u.Email == "" {
			return nil, fmt.Errorf("entry %d: name and email are required", i)
		}
	}
	return users, nil
}

func render(w io.Writer, format string, out *result) error {
	switch strings.ToLower(format) {
	case "plain":
		for _, u := range out.Created {
			fmt.Fprintf(w, "%d\t%s\t%s\n", u.ID, u.Name, u.Email)
		}
		for _, email := range out.Skipped {
			fmt.Fprintf(w, "skipped\t%s\n", email)
		}
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	default:
		return fmt.Errorf("invalid format %q; use plain or json", format)
	}
}
