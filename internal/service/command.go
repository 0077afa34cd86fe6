package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
	"github.com/DevRickLin/feishu-modbot/internal/biz/repo"
	"github.com/DevRickLin/feishu-modbot/internal/biz/usecase"
)

// CommandPrefix starts every staff command
const CommandPrefix = "/"

// CommandRequest is a staff command typed in a chat
type CommandRequest struct {
	ChatID   string
	SenderID string
	Text     string          // raw text with mentions rendered as @Name
	Mentions []domain.Member // mentioned users in order of appearance
}

type commandFunc func(ctx context.Context, req *CommandRequest, args string) (string, error)

type command struct {
	usage string
	help  string
	run   commandFunc
}

// CommandService executes staff commands. Replies are sent privately to the issuing staff member.
type CommandService struct {
	staffPolicy *usecase.StaffPolicy
	staff       *usecase.StaffUsecase
	whitelist   *usecase.WhitelistUsecase
	platform    repo.PlatformRepo
	commands    map[string]command
	order       []string
	logger      *slog.Logger
}

// NewCommandService creates a new command service
func NewCommandService(
	staffPolicy *usecase.StaffPolicy,
	staff *usecase.StaffUsecase,
	whitelist *usecase.WhitelistUsecase,
	platform repo.PlatformRepo,
	logger *slog.Logger,
) *CommandService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &CommandService{
		staffPolicy: staffPolicy,
		staff:       staff,
		whitelist:   whitelist,
		platform:    platform,
		commands:    make(map[string]command),
		logger:      logger.With("component", "command"),
	}
	s.register("removewarnings", "/removewarnings @user", "Reset a user's warning count", s.removeWarnings)
	s.register("status", "/status @user", "Show warnings, jail and exempt state", s.status)
	s.register("whitelist_add", "/whitelist_add <phrase>", "Never flag messages containing the phrase", s.whitelistAdd)
	s.register("whitelist_remove", "/whitelist_remove <phrase>", "Remove a whitelisted phrase", s.whitelistRemove)
	s.register("whitelist_list", "/whitelist_list", "List whitelisted phrases", s.whitelistList)
	s.register("exempt", "/exempt @user", "Moderate a user with the lenient profile", s.exempt)
	s.register("exemptremove", "/exemptremove @user", "Remove a user from the exempt list", s.exemptRemove)
	s.register("exemptlist", "/exemptlist", "List exempt users", s.exemptList)
	s.register("jailed", "/jailed", "List jailed users", s.jailed)
	s.register("dm", "/dm @user <message>", "Send a private message as the bot", s.dm)
	s.register("summarize", "/summarize [n]", fmt.Sprintf("Summarize the last n messages of this chat (default %d, max %d)",
		usecase.DefaultSummaryMessages, usecase.MaxSummaryMessages), s.summarize)
	s.register("commands", "/commands", "Show this list", s.help)
	return s
}

func (s *CommandService) register(name, usage, help string, run commandFunc) {
	s.commands[name] = command{usage: usage, help: help, run: run}
	s.order = append(s.order, name)
}

// IsCommand reports whether text is addressed to the command service
func IsCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), CommandPrefix)
}

// Execute runs a staff command and sends the reply to the issuer.
// Returns the reply text; non-staff senders get no reply.
func (s *CommandService) Execute(ctx context.Context, req *CommandRequest) (string, error) {
	if !s.staffPolicy.IsStaff(req.SenderID) {
		return "", domain.ErrUnauthorized
	}

	name, args := splitCommand(req.Text)
	cmd, ok := s.commands[name]
	var reply string
	if !ok {
		reply = fmt.Sprintf("Unknown command %q. Type /commands for the list.", name)
	} else {
		out, err := cmd.run(ctx, req, args)
		if err != nil {
			s.logger.Warn("command failed", "command", name, "sender", req.SenderID, "err", err)
			reply = commandError(err, cmd.usage)
		} else {
			s.logger.Info("command executed", "command", name, "sender", req.SenderID)
			reply = out
		}
	}

	if err := s.platform.SendDirect(ctx, req.SenderID, reply); err != nil {
		return reply, fmt.Errorf("send reply: %w", err)
	}
	return reply, nil
}

func splitCommand(text string) (string, string) {
	text = strings.TrimPrefix(strings.TrimSpace(text), CommandPrefix)
	name, args, _ := strings.Cut(text, " ")
	return strings.ToLower(name), strings.TrimSpace(args)
}

var errUsage = errors.New("usage")

func commandError(err error, usage string) string {
	switch {
	case errors.Is(err, errUsage):
		return "Usage: " + usage
	case errors.Is(err, domain.ErrNotFound):
		return "User or message not found."
	case errors.Is(err, domain.ErrPermissionDenied):
		return "The bot is missing the permission for this action."
	case errors.Is(err, domain.ErrClassifierUnavailable):
		return "The classifier is unavailable, try again later."
	case errors.Is(err, usecase.ErrSummaryTooLong):
		return "❌ " + err.Error() + "."
	}
	return "❌ " + err.Error()
}

// target resolves the user a command acts on: the first mention, or a raw open_id argument
func target(req *CommandRequest, args string) (domain.Member, string, error) {
	if len(req.Mentions) > 0 {
		m := req.Mentions[0]
		rest := strings.TrimSpace(strings.TrimPrefix(args, "@"+m.Name))
		return m, rest, nil
	}
	id, rest, _ := strings.Cut(args, " ")
	if !strings.HasPrefix(id, "ou_") {
		return domain.Member{}, "", errUsage
	}
	return domain.Member{UserID: id, Name: id}, strings.TrimSpace(rest), nil
}

func (s *CommandService) removeWarnings(ctx context.Context, req *CommandRequest, args string) (string, error) {
	user, _, err := target(req, args)
	if err != nil {
		return "", err
	}
	if err := s.staff.ResetWarnings(ctx, user.UserID); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Warnings for %s have been reset.", user.FormatMention()), nil
}

func (s *CommandService) status(ctx context.Context, req *CommandRequest, args string) (string, error) {
	user, _, err := target(req, args)
	if err != nil {
		return "", err
	}
	st, err := s.staff.UserState(ctx, user.UserID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s\nWarnings: %d/%d\nJailed: %t\nExempt: %t",
		user.FormatMention(), st.WarningCount, domain.WarningThreshold, st.Jailed, st.Exempt), nil
}

func (s *CommandService) whitelistAdd(ctx context.Context, _ *CommandRequest, args string) (string, error) {
	if args == "" {
		return "", errUsage
	}
	added, err := s.whitelist.Add(ctx, args)
	if err != nil {
		return "", err
	}
	if !added {
		return fmt.Sprintf("⚠️ %q is already whitelisted.", args), nil
	}
	return fmt.Sprintf("✅ Added %q to the whitelist.", args), nil
}

func (s *CommandService) whitelistRemove(ctx context.Context, _ *CommandRequest, args string) (string, error) {
	if args == "" {
		return "", errUsage
	}
	removed, err := s.whitelist.Remove(ctx, args)
	if err != nil {
		return "", err
	}
	if !removed {
		return fmt.Sprintf("⚠️ %q is not in the whitelist.", args), nil
	}
	return fmt.Sprintf("✅ Removed %q from the whitelist.", args), nil
}

func (s *CommandService) whitelistList(ctx context.Context, _ *CommandRequest, _ string) (string, error) {
	phrases, err := s.whitelist.List(ctx)
	if err != nil {
		return "", err
	}
	if len(phrases) == 0 {
		return "The whitelist is empty.", nil
	}
	var sb strings.Builder
	sb.WriteString("📃 Whitelisted phrases:")
	for _, p := range phrases {
		sb.WriteString("\n- ")
		sb.WriteString(p)
	}
	return sb.String(), nil
}

func (s *CommandService) exempt(ctx context.Context, req *CommandRequest, args string) (string, error) {
	user, _, err := target(req, args)
	if err != nil {
		return "", err
	}
	added, err := s.staff.AddExempt(ctx, user.UserID)
	if err != nil {
		return "", err
	}
	if !added {
		return fmt.Sprintf("⚠️ %s is already exempt.", user.FormatMention()), nil
	}
	return fmt.Sprintf("✅ %s is now exempt.", user.FormatMention()), nil
}

func (s *CommandService) exemptRemove(ctx context.Context, req *CommandRequest, args string) (string, error) {
	user, _, err := target(req, args)
	if err != nil {
		return "", err
	}
	removed, err := s.staff.RemoveExempt(ctx, user.UserID)
	if err != nil {
		return "", err
	}
	if !removed {
		return fmt.Sprintf("⚠️ %s is not exempt.", user.FormatMention()), nil
	}
	return fmt.Sprintf("✅ %s is no longer exempt.", user.FormatMention()), nil
}

func (s *CommandService) exemptList(ctx context.Context, _ *CommandRequest, _ string) (string, error) {
	ids, err := s.staff.ListExempt(ctx)
	if err != nil {
		return "", err
	}
	return userList("📃 Exempt users:", "No exempt users.", ids), nil
}

func (s *CommandService) jailed(ctx context.Context, _ *CommandRequest, _ string) (string, error) {
	ids, err := s.staff.ListJailed(ctx)
	if err != nil {
		return "", err
	}
	return userList("🔒 Jailed users:", "No jailed users.", ids), nil
}

func userList(header, empty string, ids []string) string {
	if len(ids) == 0 {
		return empty
	}
	var sb strings.Builder
	sb.WriteString(header)
	for _, id := range ids {
		m := domain.Member{UserID: id}
		sb.WriteString("\n- ")
		sb.WriteString(m.FormatMention())
	}
	return sb.String()
}

func (s *CommandService) dm(ctx context.Context, req *CommandRequest, args string) (string, error) {
	user, text, err := target(req, args)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", errUsage
	}
	if err := s.staff.DirectMessage(ctx, user.UserID, text); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Message sent to %s.", user.FormatMention()), nil
}

func (s *CommandService) summarize(ctx context.Context, req *CommandRequest, args string) (string, error) {
	n := 0
	if args != "" {
		v, err := strconv.Atoi(args)
		if err != nil {
			return "", errUsage
		}
		n = v
	}
	return s.staff.Summarize(ctx, req.ChatID, n)
}

func (s *CommandService) help(context.Context, *CommandRequest, string) (string, error) {
	var sb strings.Builder
	sb.WriteString("🛠 Moderator commands:")
	for _, name := range s.order {
		c := s.commands[name]
		fmt.Fprintf(&sb, "\n%s  %s", c.usage, c.help)
	}
	return sb.String(), nil
}
