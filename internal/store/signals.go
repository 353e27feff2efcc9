package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/alucardeht/ghostnote/internal/analyzer"
)

type SignalRecord struct {
	ID        string              `json:"id"`
	Text      string              `json:"text"`
	Signal    analyzer.TextSignal `json:"signal"`
	CreatedAt time.Time           `json:"created_at"`
}

func (s *Store) RecordSignal(text string, sig analyzer.TextSignal) (*SignalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &SignalRecord{
		ID:        uuid.NewString(),
		Text:      text,
		Signal:    sig,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.Exec(`
		INSERT INTO signals (id, text, word_count, emotion, tone, virality_score, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, text, sig.WordCount, string(sig.Emotion), string(sig.Tone), sig.ViralityScore, rec.CreatedAt)
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// RecentSignals returns up to limit records, newest first.
func (s *Store) RecentSignals(limit int) ([]SignalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, text, word_count, emotion, tone, virality_score, created_at
		FROM signals
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []SignalRecord{}
	for rows.Next() {
		var rec SignalRecord
		var emotion, tone string

		err := rows.Scan(
			&rec.ID, &rec.Text, &rec.Signal.WordCount, &emotion, &tone,
			&rec.Signal.ViralityScore, &rec.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		rec.Signal.Emotion = analyzer.Emotion(emotion)
		rec.Signal.Tone = analyzer.Tone(tone)
		rec.Signal.Suggestions = []string{}
		records = append(records, rec)
	}

	return records, rows.Err()
}
