// Command tidepool is a small CLI for the Tidepool platform: log in with the
// browser-based flow, inspect the account, and upload or delete data. The
// session is persisted under the user's home directory so later invocations
// reuse it.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	tidepool "github.com/aiwanyun/TidepoolKit"
)

func main() {
	if len(os.Args) < 2 {
		fatal("usage: tidepool <login|whoami|profile|datasets|upload|logout> [args]")
	}

	// A .env in the working directory can supply TIDEPOOL_ENV and friends.
	_ = godotenv.Load()

	logger := zerolog.Nop()
	if os.Getenv("TIDEPOOL_DEBUG") != "" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	client, sessionPath, err := newClient(logger)
	if err != nil {
		fatal("create client: %v", err)
	}

	// Persist every session change, including logout.
	unsubscribe := client.Sessions().Subscribe(func(session *tidepool.Session) {
		if err := saveSession(sessionPath, session); err != nil {
			logger.Warn().Err(err).Msg("persist session")
		}
	})
	defer unsubscribe()

	switch os.Args[1] {
	case "login":
		login(ctx, client)
	case "whoami":
		whoami(ctx, client)
	case "profile":
		profile(ctx, client)
	case "datasets":
		datasets(ctx, client)
	case "upload":
		upload(ctx, client, os.Args[2:])
	case "logout":
		logout(ctx, client)
	default:
		fatal("unknown command: %s", os.Args[1])
	}

	// Give the persistence subscriber a moment to observe the final state.
	time.Sleep(100 * time.Millisecond)
}

func newClient(logger zerolog.Logger) (*tidepool.Client, string, error) {
	opts := []tidepool.Option{tidepool.WithLogger(logger)}

	environment := tidepool.DefaultEnvironment()
	if label := os.Getenv("TIDEPOOL_ENV"); label != "" {
		found := false
		for _, candidate := range tidepool.Environments() {
			if strings.EqualFold(candidate.Label, label) {
				environment = candidate
				found = true
				break
			}
		}
		if !found {
			return nil, "", fmt.Errorf("unknown environment %q", label)
		}
	}
	opts = append(opts, tidepool.WithEnvironment(environment))

	sessionPath, err := defaultSessionPath()
	if err != nil {
		return nil, "", err
	}
	if session := loadSession(sessionPath); session != nil && session.Environment.Equal(environment) {
		opts = append(opts, tidepool.WithSession(session))
	}

	client, err := tidepool.New(opts...)
	return client, sessionPath, err
}

func login(ctx context.Context, client *tidepool.Client) {
	session, err := client.Login(ctx, tidepool.UserAgentFunc(browserAgent))
	if err != nil {
		if errors.Is(err, tidepool.ErrLoginCanceled) {
			fatal("login canceled")
		}
		fatal("login: %v", err)
	}
	fmt.Printf("Logged in to %s as %s\n", session.Environment, session.UserID)
}

// browserAgent prints the authorization URL for the user to open and reads
// the redirect URL back from stdin.
func browserAgent(ctx context.Context, authorizationURL, redirectURL string) (string, error) {
	fmt.Println("Open the following URL in your browser and authorize access:")
	fmt.Println()
	fmt.Println("  " + authorizationURL)
	fmt.Println()
	fmt.Print("Paste the redirect URL here: ")

	lines := make(chan string, 1)
	go func() {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			close(lines)
			return
		}
		lines <- strings.TrimSpace(line)
	}()

	select {
	case <-ctx.Done():
		return "", tidepool.ErrLoginCanceled
	case line, ok := <-lines:
		if !ok || line == "" {
			return "", tidepool.ErrLoginCanceled
		}
		return line, nil
	}
}

func whoami(ctx context.Context, client *tidepool.Client) {
	session, err := client.VerifySession(ctx)
	if err != nil {
		fatal("verify session: %v", err)
	}
	fmt.Printf("Environment: %s\n", session.Environment)
	fmt.Printf("User:        %s\n", session.UserID)
	if !session.ExpiresAt.IsZero() {
		fmt.Printf("Expires:     %s\n", session.ExpiresAt.Format(time.RFC3339))
	}
}

func profile(ctx context.Context, client *tidepool.Client) {
	p, err := client.GetProfile(ctx)
	if err != nil {
		fatal("get profile: %v", err)
	}
	if err := json.NewEncoder(os.Stdout).Encode(p); err != nil {
		fatal("encode profile: %v", err)
	}
}

func datasets(ctx context.Context, client *tidepool.Client) {
	dataSets, err := client.ListDataSets(ctx)
	if err != nil {
		fatal("list data sets: %v", err)
	}
	for _, dataSet := range dataSets {
		fmt.Printf("%s\t%s\t%s\n", dataSet.UploadID, dataSet.DataSetType, dataSet.State)
	}
}

// upload reads a JSON array of datums from a file (or stdin with "-"),
// creates a data set, submits the batch, and closes the set.
func upload(ctx context.Context, client *tidepool.Client, args []string) {
	if len(args) < 1 {
		fatal("usage: tidepool upload <datums.json|->")
	}

	var datums []tidepool.Datum
	input := os.Stdin
	if args[0] != "-" {
		file, err := os.Open(args[0])
		if err != nil {
			fatal("open input: %v", err)
		}
		defer file.Close()
		input = file
	}
	if err := json.NewDecoder(input).Decode(&datums); err != nil {
		fatal("parse datums: %v", err)
	}

	dataSet, err := client.CreateDataSet(ctx, &tidepool.DataSet{
		DataSetType:  tidepool.DataSetTypeNormal,
		Client:       &tidepool.DataSetClient{Name: "org.tidepool.tidepoolkit.cli", Version: tidepool.Version},
		Deduplicator: &tidepool.Deduplicator{Name: tidepool.DeduplicatorDataSetDeleteOrigin},
	})
	if err != nil {
		fatal("create data set: %v", err)
	}

	accepted, _, err := client.CreateDatums(ctx, dataSet.UploadID, datums)
	if err != nil {
		var malformed *tidepool.RequestMalformedError
		if errors.As(err, &malformed) {
			fmt.Fprintln(os.Stderr, "the service rejected the batch:")
			for _, detail := range malformed.Details {
				fmt.Fprintf(os.Stderr, "  %s: %s (%s)\n", detail.Code, detail.Title, pointerOf(detail))
			}
			os.Exit(1)
		}
		fatal("upload datums: %v", err)
	}

	if err := client.CloseDataSet(ctx, dataSet.UploadID); err != nil {
		fatal("close data set: %v", err)
	}

	fmt.Printf("Uploaded %d datums to data set %s\n", len(accepted), dataSet.UploadID)
}

func pointerOf(detail tidepool.ErrorDetail) string {
	if detail.Source != nil && detail.Source.Pointer != "" {
		return detail.Source.Pointer
	}
	return "?"
}

func logout(ctx context.Context, client *tidepool.Client) {
	if err := client.Logout(ctx); err != nil {
		// The local session is gone either way.
		fmt.Fprintf(os.Stderr, "warning: server-side revocation failed: %v\n", err)
	}
	fmt.Println("Logged out")
}

func defaultSessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tidepool", "session.json"), nil
}

func loadSession(path string) *tidepool.Session {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var session tidepool.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil
	}
	return &session
}

func saveSession(path string, session *tidepool.Session) error {
	if session == nil {
		err := os.Remove(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
