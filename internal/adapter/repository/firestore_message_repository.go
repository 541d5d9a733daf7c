package repository

import (
	"context"
	"strings"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"sitechat/internal/domain/entity"
	"sitechat/internal/domain/repository"
	"sitechat/pkg/errors"
	"sitechat/pkg/logger"
)

const (
	groupMessagesCollection  = "messages"
	directMessagesCollection = "directMessages"
)

type firestoreMessageRepository struct {
	client *firestore.Client
}

func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{
		client: client,
	}
}

func collectionFor(scope entity.Scope) string {
	if scope.IsDirect() {
		return directMessagesCollection
	}
	return groupMessagesCollection
}

// messageDocID derives the document ID from the sender and client ID so a
// retried write lands on the same document.
func messageDocID(senderID, clientID string) string {
	return strings.ReplaceAll(senderID+"_"+clientID, "/", "-")
}

// inScope reports whether a stored message belongs to scope.
func inScope(msg *entity.Message, scope entity.Scope) bool {
	if msg.SiteID != scope.SiteID {
		return false
	}
	if scope.IsDirect() {
		return msg.PairKey == scope.PairKey()
	}
	return msg.RecipientID == ""
}

func (r *firestoreMessageRepository) scopedQuery(scope entity.Scope) firestore.Query {
	query := r.client.Collection(collectionFor(scope)).Where("siteId", "==", scope.SiteID)
	if scope.IsDirect() {
		query = query.Where("pairKey", "==", scope.PairKey())
	}
	return query
}

func docToMessage(doc *firestore.DocumentSnapshot) (*entity.Message, error) {
	var message entity.Message
	if err := doc.DataTo(&message); err != nil {
		return nil, err
	}
	message.ID = doc.Ref.ID
	message.State = entity.MessageStateConfirmed
	return &message, nil
}

func docsToMessages(docs []*firestore.DocumentSnapshot) []*entity.Message {
	messages := make([]*entity.Message, 0, len(docs))
	for _, doc := range docs {
		message, err := docToMessage(doc)
		if err != nil {
			// Skip malformed documents instead of failing the whole thread
			logger.Warn("Skipping malformed message %s: %v", doc.Ref.ID, err)
			continue
		}
		messages = append(messages, message)
	}
	return messages
}

func (r *firestoreMessageRepository) Create(ctx context.Context, scope entity.Scope, message *entity.Message) error {
	coll := r.client.Collection(collectionFor(scope))

	var ref *firestore.DocumentRef
	if message.ClientID != "" {
		ref = coll.Doc(messageDocID(message.SenderID, message.ClientID))
	} else {
		ref = coll.NewDoc()
	}
	message.ID = ref.ID

	result, err := ref.Create(ctx, message)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			// Same sender and client ID: the earlier attempt already landed
			existing, getErr := r.GetByID(ctx, scope, ref.ID)
			if getErr != nil {
				return getErr
			}
			*message = *existing
			return nil
		}
		if status.Code(err) == codes.DeadlineExceeded {
			return errors.Unavailable("Timed out writing message", err)
		}
		return errors.Internal("Failed to create message", err)
	}

	message.CreatedAt = result.UpdateTime
	message.State = entity.MessageStateConfirmed
	return nil
}

func (r *firestoreMessageRepository) GetByID(ctx context.Context, scope entity.Scope, messageID string) (*entity.Message, error) {
	doc, err := r.client.Collection(collectionFor(scope)).Doc(messageID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Message", err)
		}
		return nil, errors.Internal("Failed to get message", err)
	}

	message, err := docToMessage(doc)
	if err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	if !inScope(message, scope) {
		return nil, errors.NotFound("Message", nil)
	}
	return message, nil
}

func (r *firestoreMessageRepository) List(ctx context.Context, scope entity.Scope) ([]*entity.Message, error) {
	docs, err := r.scopedQuery(scope).Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while listing messages for %s: %v", scope.Key(), err)
		return nil, errors.Internal("Failed to list messages", err)
	}
	return docsToMessages(docs), nil
}

func (r *firestoreMessageRepository) Subscribe(ctx context.Context, scope entity.Scope, onSnapshot repository.SnapshotFunc, onError func(error)) (repository.CancelFunc, error) {
	subCtx, cancel := context.WithCancel(ctx)
	it := r.scopedQuery(scope).Snapshots(subCtx)

	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if subCtx.Err() != nil || err == iterator.Done || status.Code(err) == codes.Canceled {
					return
				}
				if onError != nil {
					onError(err)
				}
				return
			}

			docs, err := snap.Documents.GetAll()
			if err != nil {
				if subCtx.Err() != nil {
					return
				}
				if onError != nil {
					onError(err)
				}
				return
			}
			onSnapshot(docsToMessages(docs))
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }, nil
}

func (r *firestoreMessageRepository) Delete(ctx context.Context, scope entity.Scope, messageID, userID string) error {
	ref := r.client.Collection(collectionFor(scope)).Doc(messageID)

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Message", err)
			}
			return errors.Internal("Failed to get message", err)
		}

		message, err := docToMessage(doc)
		if err != nil {
			return errors.Internal("Failed to parse message data", err)
		}
		if !inScope(message, scope) {
			return errors.NotFound("Message", nil)
		}
		if message.SenderID != userID {
			return errors.Forbidden("Only the sender can delete this message", nil)
		}

		return tx.Delete(ref)
	})
}

func (r *firestoreMessageRepository) MarkRead(ctx context.Context, scope entity.Scope, messageID, userID string) error {
	ref := r.client.Collection(collectionFor(scope)).Doc(messageID)

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Message", err)
			}
			return errors.Internal("Failed to get message", err)
		}

		message, err := docToMessage(doc)
		if err != nil {
			return errors.Internal("Failed to parse message data", err)
		}
		if !inScope(message, scope) {
			return errors.NotFound("Message", nil)
		}

		var updates []firestore.Update
		if !message.IsReadBy(userID) {
			updates = append(updates, firestore.Update{Path: "readBy", Value: firestore.ArrayUnion(userID)})
		}
		if message.IsDirect() && message.RecipientID == userID && message.ReadAt == nil {
			updates = append(updates, firestore.Update{Path: "readAt", Value: firestore.ServerTimestamp})
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Update(ref, updates)
	})
}

func (r *firestoreMessageRepository) ListDirectForUser(ctx context.Context, siteID, userID string) ([]*entity.Message, error) {
	docs, err := r.client.Collection(directMessagesCollection).
		Where("siteId", "==", siteID).
		Where("participants", "array-contains", userID).
		Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while listing direct messages of %s in site %s: %v", userID, siteID, err)
		return nil, errors.Internal("Failed to list direct messages", err)
	}
	return docsToMessages(docs), nil
}
