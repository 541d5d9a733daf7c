package usecase

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"sitechat/internal/domain/entity"
	"sitechat/internal/domain/repository"
	"sitechat/pkg/errors"
	"sitechat/pkg/logger"
)

// rosterConcurrency caps parallel per-admin derivations.
const rosterConcurrency = 8

// ThreadUseCase answers which conversations a user has and opens direct
// threads. Direct threads have no header document; everything is derived
// from messages.
type ThreadUseCase struct {
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
}

func NewThreadUseCase(messageRepo repository.MessageRepository, userRepo repository.UserRepository) *ThreadUseCase {
	return &ThreadUseCase{
		messageRepo: messageRepo,
		userRepo:    userRepo,
	}
}

// ListGroupThread summarizes the single group thread of a site.
func (uc *ThreadUseCase) ListGroupThread(ctx context.Context, self *entity.User, siteID string) (*entity.GroupThread, error) {
	scope := entity.GroupScope(siteID)
	if err := authorize(self, scope); err != nil {
		return nil, err
	}

	messages, err := uc.messageRepo.List(ctx, scope)
	if err != nil {
		logger.Error("ListGroupThread Error: Failed to list messages for site %s: %v", siteID, err)
		return nil, err
	}

	thread := &entity.GroupThread{SiteID: siteID}
	if last := LastMessage(messages); last != nil {
		thread.LastMessage = last
		thread.LastMessageTime = last.SortTime()
	}
	thread.UnreadCount = countUnread(messages, self.ID)
	return thread, nil
}

// ListDirectThreads returns one entry per counterpart the user has exchanged
// direct messages with in the site, newest first.
func (uc *ThreadUseCase) ListDirectThreads(ctx context.Context, self *entity.User, siteID string) ([]*entity.DirectThread, error) {
	if err := authorize(self, entity.GroupScope(siteID)); err != nil {
		return nil, err
	}

	messages, err := uc.messageRepo.ListDirectForUser(ctx, siteID, self.ID)
	if err != nil {
		logger.Error("ListDirectThreads Error: Failed to list direct messages for %s in site %s: %v", self.ID, siteID, err)
		return nil, err
	}

	return BuildDirectThreads(siteID, self.ID, messages), nil
}

// BuildDirectThreads groups direct messages by counterpart of selfID. The
// counterpart name is taken from the newest message naming them.
func BuildDirectThreads(siteID, selfID string, messages []*entity.Message) []*entity.DirectThread {
	byOther := make(map[string][]*entity.Message)
	for _, msg := range messages {
		if msg == nil || msg.SiteID != siteID {
			continue
		}
		other := counterpart(msg, selfID)
		if other == "" {
			continue
		}
		byOther[other] = append(byOther[other], msg)
	}

	threads := make([]*entity.DirectThread, 0, len(byOther))
	for otherID, msgs := range byOther {
		ordered := SortMessages(msgs)
		last := ordered[len(ordered)-1]

		thread := &entity.DirectThread{
			SiteID:          siteID,
			Other:           entity.UserSnapshot{ID: otherID},
			LastMessage:     last,
			LastMessageTime: last.SortTime(),
			UnreadCount:     countUnread(ordered, selfID),
		}
		for i := len(ordered) - 1; i >= 0; i-- {
			if name := counterpartName(ordered[i], otherID); name != "" {
				thread.Other.Name = name
				break
			}
		}
		threads = append(threads, thread)
	}

	sort.Slice(threads, func(i, j int) bool {
		if !threads[i].LastMessageTime.Equal(threads[j].LastMessageTime) {
			return threads[i].LastMessageTime.After(threads[j].LastMessageTime)
		}
		return threads[i].Other.ID < threads[j].Other.ID
	})
	return threads
}

// ResolveOrOpenThread returns the handle of the direct thread between self and
// otherID. Nothing is created; the thread exists once a message is sent.
func (uc *ThreadUseCase) ResolveOrOpenThread(ctx context.Context, self *entity.User, siteID, otherID string) (*entity.ThreadHandle, error) {
	scope := entity.DirectScope(siteID, self.ID, otherID)
	if err := authorize(self, scope); err != nil {
		return nil, err
	}

	other, err := uc.userRepo.GetByID(ctx, otherID)
	if err != nil {
		logger.Error("ResolveOrOpenThread Error: User %s not found: %v", otherID, err)
		return nil, err
	}
	if !other.BelongsTo(siteID) {
		return nil, errors.Forbidden("User is not a member of this site", nil)
	}

	messages, err := uc.messageRepo.List(ctx, scope)
	if err != nil {
		logger.Error("ResolveOrOpenThread Error: Failed to list messages for %s: %v", scope.Key(), err)
		return nil, err
	}

	return &entity.ThreadHandle{
		Scope:  scope,
		Key:    scope.Key(),
		Other:  other.Snapshot(),
		Exists: len(messages) > 0,
	}, nil
}

// ListAdminRoster builds one thread entry per administrator of the site,
// including administrators the user has not talked to yet.
func (uc *ThreadUseCase) ListAdminRoster(ctx context.Context, self *entity.User, siteID string) ([]*entity.DirectThread, error) {
	if err := authorize(self, entity.GroupScope(siteID)); err != nil {
		return nil, err
	}

	admins, err := uc.userRepo.ListBySiteAndRole(ctx, siteID, entity.RoleAdmin)
	if err != nil {
		logger.Error("ListAdminRoster Error: Failed to list admins of site %s: %v", siteID, err)
		return nil, err
	}

	var (
		mu     sync.Mutex
		roster = make([]*entity.DirectThread, 0, len(admins))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rosterConcurrency)
	for _, admin := range admins {
		admin := admin
		if admin.ID == self.ID {
			continue
		}
		g.Go(func() error {
			scope := entity.DirectScope(siteID, self.ID, admin.ID)
			messages, err := uc.messageRepo.List(gctx, scope)
			if err != nil {
				return err
			}

			thread := &entity.DirectThread{SiteID: siteID, Other: admin.Snapshot()}
			if last := LastMessage(messages); last != nil {
				thread.LastMessage = last
				thread.LastMessageTime = last.SortTime()
			}
			thread.UnreadCount = countUnread(messages, self.ID)

			mu.Lock()
			roster = append(roster, thread)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("ListAdminRoster Error: Failed to derive roster for site %s: %v", siteID, err)
		return nil, err
	}

	sort.Slice(roster, func(i, j int) bool {
		a, b := roster[i], roster[j]
		if (a.LastMessage == nil) != (b.LastMessage == nil) {
			return a.LastMessage != nil
		}
		if !a.LastMessageTime.Equal(b.LastMessageTime) {
			return a.LastMessageTime.After(b.LastMessageTime)
		}
		if a.Other.Name != b.Other.Name {
			return a.Other.Name < b.Other.Name
		}
		return a.Other.ID < b.Other.ID
	})
	return roster, nil
}

func counterpart(msg *entity.Message, selfID string) string {
	switch selfID {
	case msg.SenderID:
		return msg.RecipientID
	case msg.RecipientID:
		return msg.SenderID
	}
	return ""
}

func counterpartName(msg *entity.Message, otherID string) string {
	if msg.SenderID == otherID {
		return msg.SenderName
	}
	if msg.RecipientID == otherID {
		return msg.RecipientName
	}
	return ""
}

func countUnread(messages []*entity.Message, userID string) int {
	unread := 0
	for _, msg := range messages {
		if msg != nil && !msg.IsReadBy(userID) {
			unread++
		}
	}
	return unread
}
