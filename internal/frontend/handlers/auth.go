// Package handlers provides Telnet session handling: the authentication
// loop, the roster screen, and the sheet-editing command loop.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rwpulley/charkeep/internal/frontend/telnet"
	"github.com/rwpulley/charkeep/internal/game/command"
	"github.com/rwpulley/charkeep/internal/game/dice"
	"github.com/rwpulley/charkeep/internal/game/roster"
	"github.com/rwpulley/charkeep/internal/game/ruleset"
	"github.com/rwpulley/charkeep/internal/scripting"
	"github.com/rwpulley/charkeep/internal/storage/postgres"
)

// AccountStore defines the account persistence operations required by AuthHandler.
type AccountStore interface {
	Create(ctx context.Context, username, password string) (postgres.Account, error)
	Authenticate(ctx context.Context, username, password string) (postgres.Account, error)
	GetByUsername(ctx context.Context, username string) (postgres.Account, error)
	SetRole(ctx context.Context, accountID int64, role string) error
}

// RosterOpener yields the roster store for one account. The file backend
// ignores the account ID and shares a single roster; the postgres backend
// scopes the store to the account's rows.
type RosterOpener func(accountID int64) roster.Store

const welcomeBanner = `
` + telnet.Bold + telnet.BrightCyan + `
  ██████╗██╗  ██╗ █████╗ ██████╗ ██╗  ██╗███████╗███████╗██████╗
 ██╔════╝██║  ██║██╔══██╗██╔══██╗██║ ██╔╝██╔════╝██╔════╝██╔══██╗
 ██║     ███████║███████║██████╔╝█████╔╝ █████╗  █████╗  ██████╔╝
 ██║     ██╔══██║██╔══██║██╔══██╗██╔═██╗ ██╔══╝  ██╔══╝  ██╔═══╝
 ╚██████╗██║  ██║██║  ██║██║  ██║██║  ██╗███████╗███████╗██║
  ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚══════╝╚═╝` + telnet.Reset + `

` + telnet.BrightYellow + `  The character vault — sheets, stats, and spell ledgers.` + telnet.Reset + `

  Type ` + telnet.Green + `login <username> <password>` + telnet.Reset + ` to connect.
  Type ` + telnet.Green + `register <username> <password>` + telnet.Reset + ` to create an account.
  Type ` + telnet.Green + `quit` + telnet.Reset + ` to disconnect.
`

// AuthHandler implements telnet.SessionHandler. It runs the authentication
// loop for a connected client and hands authenticated sessions to the
// sheet-editing loop.
type AuthHandler struct {
	accounts    AccountStore // nil enables local guest mode
	openRoster  RosterOpener
	templates   *ruleset.TemplateRegistry
	registry    *command.Registry
	roller      *dice.Roller
	scripts     *scripting.Manager // may be nil
	rulesID     string
	historySize int
	logger      *zap.Logger

	mu       sync.Mutex
	rosters  map[int64]*roster.Manager
	presence map[string]presenceInfo // session ID → connected user
}

type presenceInfo struct {
	Username  string
	Character string
}

// NewAuthHandler creates an AuthHandler.
//
// Precondition: openRoster, templates, roller, and logger must be non-nil.
// A nil accounts store enables guest mode: every connection lands directly
// in an admin-role local session sharing one roster.
func NewAuthHandler(
	accounts AccountStore,
	openRoster RosterOpener,
	templates *ruleset.TemplateRegistry,
	roller *dice.Roller,
	scripts *scripting.Manager,
	rulesID string,
	historySize int,
	logger *zap.Logger,
) *AuthHandler {
	if openRoster == nil || templates == nil || roller == nil || logger == nil {
		panic("handlers: NewAuthHandler precondition violated: openRoster, templates, roller, and logger must be non-nil")
	}
	if historySize < 1 {
		historySize = 50
	}
	return &AuthHandler{
		accounts:    accounts,
		openRoster:  openRoster,
		templates:   templates,
		registry:    command.DefaultRegistry(),
		roller:      roller,
		scripts:     scripts,
		rulesID:     rulesID,
		historySize: historySize,
		logger:      logger,
	}
}

// HandleSession implements telnet.SessionHandler. It shows the welcome
// banner and processes authentication commands until the user logs in or
// quits; in guest mode it goes straight to the sheet session.
//
// Postcondition: Returns nil on clean quit, or an error if the session ended abnormally.
func (h *AuthHandler) HandleSession(ctx context.Context, conn *telnet.Conn) error {
	start := time.Now()
	addr := conn.RemoteAddr().String()

	if err := conn.Write([]byte(welcomeBanner)); err != nil {
		return fmt.Errorf("sending welcome: %w", err)
	}

	if h.accounts == nil {
		_ = conn.WriteLine(telnet.Colorize(telnet.Cyan, "Running in local mode; no login required."))
		return h.sheetSession(ctx, conn, postgres.Account{Username: "local", Role: postgres.RoleAdmin})
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "Server shutting down. Goodbye!"))
			return ctx.Err()
		default:
		}

		if err := conn.WritePrompt(telnet.Colorize(telnet.BrightWhite, "> ")); err != nil {
			return fmt.Errorf("writing prompt: %w", err)
		}

		line, err := conn.ReadLine()
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "quit", "exit":
			_ = conn.WriteLine(telnet.Colorize(telnet.Cyan, "Goodbye!"))
			h.logger.Info("client quit",
				zap.String("remote_addr", addr),
				zap.Duration("session_duration", time.Since(start)),
			)
			return nil

		case "login":
			acct, err := h.handleLogin(ctx, conn, args)
			if err != nil {
				return err
			}
			if acct.ID == 0 {
				continue
			}
			h.logger.Info("user logged in",
				zap.String("remote_addr", addr),
				zap.String("username", acct.Username),
				zap.Duration("login_time", time.Since(start)),
			)
			return h.sheetSession(ctx, conn, acct)

		case "register":
			if err := h.handleRegister(ctx, conn, args); err != nil {
				return err
			}

		case "help":
			h.showAuthHelp(conn)

		default:
			_ = conn.WriteLine(telnet.Colorf(telnet.Red, "Unknown command: %s. Type 'help' for available commands.", cmd))
		}
	}
}

// handleLogin authenticates a user.
//
// Postcondition: Returns (acct, nil) on success, (postgres.Account{}, nil) if the error was
// shown to the user and the auth loop should continue, or (postgres.Account{}, error) on fatal errors.
func (h *AuthHandler) handleLogin(ctx context.Context, conn *telnet.Conn, args []string) (postgres.Account, error) {
	if len(args) < 2 {
		_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Usage: login <username> <password>"))
		return postgres.Account{}, nil
	}

	username := args[0]
	password := args[1]

	start := time.Now()
	acct, err := h.accounts.Authenticate(ctx, username, password)
	elapsed := time.Since(start)

	if err != nil {
		switch {
		case errors.Is(err, postgres.ErrAccountNotFound):
			_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Account not found. Use 'register' to create one."))
			return postgres.Account{}, nil
		case errors.Is(err, postgres.ErrInvalidCredentials):
			_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Invalid password."))
			return postgres.Account{}, nil
		default:
			h.logger.Error("authentication error", zap.Error(err), zap.Duration("elapsed", elapsed))
			_ = conn.WriteLine(telnet.Colorize(telnet.Red, "An internal error occurred. Please try again."))
			return postgres.Account{}, nil
		}
	}

	_ = conn.WriteLine(telnet.Colorf(telnet.BrightGreen,
		"Welcome back, %s! (account #%d) [%s]",
		acct.Username, acct.ID, elapsed,
	))
	return acct, nil
}

func (h *AuthHandler) handleRegister(ctx context.Context, conn *telnet.Conn, args []string) error {
	if len(args) < 2 {
		return conn.WriteLine(telnet.Colorize(telnet.Red, "Usage: register <username> <password>"))
	}

	username := args[0]
	password := args[1]

	if len(username) < 3 || len(username) > 32 {
		return conn.WriteLine(telnet.Colorize(telnet.Red, "Username must be 3-32 characters."))
	}
	if len(password) < 6 {
		return conn.WriteLine(telnet.Colorize(telnet.Red, "Password must be at least 6 characters."))
	}

	start := time.Now()
	acct, err := h.accounts.Create(ctx, username, password)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, postgres.ErrAccountExists) {
			_ = conn.WriteLine(telnet.Colorize(telnet.Red, "That username is already taken."))
			return nil
		}
		h.logger.Error("registration error", zap.Error(err), zap.Duration("elapsed", elapsed))
		_ = conn.WriteLine(telnet.Colorize(telnet.Red, "An internal error occurred. Please try again."))
		return nil
	}

	_ = conn.WriteLine(telnet.Colorf(telnet.BrightGreen,
		"Account created: %s (#%d). You may now 'login'. [%s]",
		acct.Username, acct.ID, elapsed,
	))
	return nil
}

func (h *AuthHandler) showAuthHelp(conn *telnet.Conn) {
	help := telnet.Colorize(telnet.BrightWhite, "Available commands:") + "\r\n" +
		telnet.Colorize(telnet.Green, "  login <username> <password>") + "    — Log in to your account\r\n" +
		telnet.Colorize(telnet.Green, "  register <username> <password>") + " — Create a new account\r\n" +
		telnet.Colorize(telnet.Green, "  help") + "                           — Show this help\r\n" +
		telnet.Colorize(telnet.Green, "  quit") + "                           — Disconnect\r\n"
	_ = conn.Write([]byte(help))
}

// rosterFor returns the cached roster manager for accountID, creating it on
// first use. Sessions of the same account share one manager so the
// single-writer checkout rule holds across connections.
func (h *AuthHandler) rosterFor(ctx context.Context, accountID int64) (*roster.Manager, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rosters == nil {
		h.rosters = make(map[int64]*roster.Manager)
	}
	if m, ok := h.rosters[accountID]; ok {
		return m, nil
	}
	m, err := roster.NewManager(ctx, h.openRoster(accountID))
	if err != nil {
		return nil, fmt.Errorf("opening roster for account %d: %w", accountID, err)
	}
	h.rosters[accountID] = m
	return m, nil
}

func (h *AuthHandler) trackPresence(sessionID, username string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.presence == nil {
		h.presence = make(map[string]presenceInfo)
	}
	h.presence[sessionID] = presenceInfo{Username: username}
}

func (h *AuthHandler) setPresenceCharacter(sessionID, characterName string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if p, ok := h.presence[sessionID]; ok {
		p.Character = characterName
		h.presence[sessionID] = p
	}
}

func (h *AuthHandler) dropPresence(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.presence, sessionID)
}

func (h *AuthHandler) listPresence() []presenceInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]presenceInfo, 0, len(h.presence))
	for _, p := range h.presence {
		out = append(out, p)
	}
	return out
}
