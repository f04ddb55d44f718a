package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ktsujino/watari/common/spec/wire"
	"github.com/ktsujino/watari/internal/watari/accounts"
	"github.com/ktsujino/watari/internal/watari/normalize"
)

// ErrAccountUnavailable is returned by the outbound surface when the named
// account is disabled or has no usable credentials.
var ErrAccountUnavailable = errors.New("account disabled or not configured")

// outbound resolves the account and normalizes the target for an
// operator-initiated send.
func (s *Service) outbound(accountID, target string) (accounts.ResolvedAccount, string, error) {
	acct := s.resolver.ResolveAccount(accountID)
	if !acct.Enabled || !acct.Configured {
		return acct, "", fmt.Errorf("account %q: %w", acct.AccountID, ErrAccountUnavailable)
	}
	to, ok := normalize.Target(target)
	if !ok {
		return acct, "", fmt.Errorf("unusable send target %q", target)
	}
	return acct, to, nil
}

// SendText sends text on behalf of an account, chunking bodies that exceed
// the account's text limit. It returns the response of the last chunk.
func (s *Service) SendText(ctx context.Context, accountID, target, body string) (*wire.SendResponse, error) {
	acct, to, err := s.outbound(accountID, target)
	if err != nil {
		return nil, err
	}

	limit := normalize.TextChunkLimit
	if acct.Config.TextChunkLimit != nil && *acct.Config.TextChunkLimit > 0 {
		limit = *acct.Config.TextChunkLimit
	}

	snd := s.sender(acct)
	var resp *wire.SendResponse
	for _, chunk := range normalize.ChunkText(body, limit) {
		resp, err = snd.SendText(ctx, to, chunk)
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// SendMedia sends a media message on behalf of an account.
func (s *Service) SendMedia(ctx context.Context, accountID, target string, mediaType wire.MessageType, media *wire.Media) (*wire.SendResponse, error) {
	acct, to, err := s.outbound(accountID, target)
	if err != nil {
		return nil, err
	}
	return s.sender(acct).SendMedia(ctx, to, mediaType, media)
}

// SendReaction reacts to a message on behalf of an account. An empty emoji
// removes a previous reaction.
func (s *Service) SendReaction(ctx context.Context, accountID, target, messageID, emoji string) (*wire.SendResponse, error) {
	acct, to, err := s.outbound(accountID, target)
	if err != nil {
		return nil, err
	}
	return s.sender(acct).SendReaction(ctx, to, messageID, emoji)
}

// SendLocation sends a location pin on behalf of an account.
func (s *Service) SendLocation(ctx context.Context, accountID, target string, loc *wire.Location) (*wire.SendResponse, error) {
	acct, to, err := s.outbound(accountID, target)
	if err != nil {
		return nil, err
	}
	return s.sender(acct).SendLocation(ctx, to, loc)
}

// SendInteractive sends an interactive message on behalf of an account.
func (s *Service) SendInteractive(ctx context.Context, accountID, target string, in *wire.Interactive) (*wire.SendResponse, error) {
	acct, to, err := s.outbound(accountID, target)
	if err != nil {
		return nil, err
	}
	return s.sender(acct).SendInteractive(ctx, to, in)
}
