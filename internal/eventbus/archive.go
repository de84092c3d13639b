package eventbus

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/annel0/pilotsim/internal/logging"
)

// ArchiveConfig настройки архива событий в MongoDB
type ArchiveConfig struct {
	URI        string // mongodb://localhost:27017
	Database   string // pilotsim
	Collection string // hook_events
}

// archiveDoc документ архива
type archiveDoc struct {
	EventID   string            `bson:"event_id"`
	Type      string            `bson:"type"`
	Timestamp time.Time         `bson:"ts"`
	Source    string            `bson:"source"`
	Frame     uint64            `bson:"frame"`
	Pilot     uint32            `bson:"pilot"`
	Payload   bson.M            `bson:"payload"`
	Metadata  map[string]string `bson:"metadata,omitempty"`
}

// Archive сохраняет события хуков, гибелей и прыжков в коллекцию MongoDB
type Archive struct {
	client     *mongo.Client
	collection *mongo.Collection
	ctxTimeout time.Duration
	sub        Subscription
	logger     *logging.Logger
}

// NewArchive подключается к MongoDB и создаёт индексы
func NewArchive(cfg ArchiveConfig) (*Archive, error) {
	if cfg.URI == "" {
		cfg.URI = "mongodb://localhost:27017"
	}
	if cfg.Database == "" {
		cfg.Database = "pilotsim"
	}
	if cfg.Collection == "" {
		cfg.Collection = "hook_events"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("MongoDB не отвечает: %w", err)
	}

	a := &Archive{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		ctxTimeout: 5 * time.Second,
		logger:     logging.GetComponentLogger("archive"),
	}
	if err := a.ensureIndexes(); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *Archive) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.ctxTimeout)
	defer cancel()
	_, err := a.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("event_id_unique"),
		},
		{
			Keys:    bson.D{{Key: "pilot", Value: 1}, {Key: "frame", Value: 1}},
			Options: options.Index().SetName("pilot_frame"),
		},
	})
	return err
}

// Attach подписывает архив на события шины
func (a *Archive) Attach(ctx context.Context, bus EventBus) error {
	sub, err := bus.Subscribe(ctx, Filter{Types: []string{TypeHook, TypeDeath, TypeJump}}, a.store)
	if err != nil {
		return fmt.Errorf("архив: подписка: %w", err)
	}
	a.sub = sub
	a.logger.Info("🗄️ Архив событий подключён к шине")
	return nil
}

func (a *Archive) store(ctx context.Context, ev *Envelope) {
	doc, err := toArchiveDoc(ev)
	if err != nil {
		a.logger.Warn("событие %s не архивировано: %v", ev.ID, err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, a.ctxTimeout)
	defer cancel()
	if _, err := a.collection.InsertOne(ctx, doc); err != nil && !mongo.IsDuplicateKeyError(err) {
		a.logger.Error("ошибка записи события %s в архив: %v", ev.ID, err)
	}
}

// toArchiveDoc переводит событие в документ архива
func toArchiveDoc(ev *Envelope) (*archiveDoc, error) {
	var payload bson.M
	if err := ev.Decode(&payload); err != nil {
		return nil, err
	}
	doc := &archiveDoc{
		EventID:   ev.ID,
		Type:      ev.EventType,
		Timestamp: ev.Timestamp,
		Source:    ev.Source,
		Payload:   payload,
		Metadata:  ev.Metadata,
	}
	// Номер кадра и пилот выносятся в поля верхнего уровня для индекса
	if v, ok := payload["frame"].(float64); ok {
		doc.Frame = uint64(v)
	}
	if v, ok := payload["pilot"].(float64); ok {
		doc.Pilot = uint32(v)
	}
	return doc, nil
}

// History последние события пилота, новые первыми
func (a *Archive) History(ctx context.Context, pilotID uint32, limit int64) ([]Envelope, error) {
	ctx, cancel := context.WithTimeout(ctx, a.ctxTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "frame", Value: -1}}).SetLimit(limit)
	cur, err := a.collection.Find(ctx, bson.M{"pilot": pilotID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Envelope
	for cur.Next(ctx) {
		var doc archiveDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		data, err := bson.MarshalExtJSON(doc.Payload, false, false)
		if err != nil {
			return nil, err
		}
		out = append(out, Envelope{
			ID:        doc.EventID,
			Timestamp: doc.Timestamp,
			Source:    doc.Source,
			EventType: doc.Type,
			Version:   1,
			Payload:   data,
			Metadata:  doc.Metadata,
		})
	}
	return out, cur.Err()
}

// Close отписывается от шины и закрывает соединение
func (a *Archive) Close(ctx context.Context) error {
	if a.sub != nil {
		a.sub.Unsubscribe()
	}
	return a.client.Disconnect(ctx)
}
