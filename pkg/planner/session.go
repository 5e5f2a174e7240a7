// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package planner

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/mchmarny/craftplan/pkg/catalog"
)

// Snapshot is the state of a Session after a mutation.
type Snapshot struct {
	Objective Objective `json:"objective"`
	Settings  Settings  `json:"settings"`
	Records   []Record  `json:"records"`
	Totals    Totals    `json:"totals"`
	Err       error     `json:"-"`
}

// Session holds an objective and settings and keeps the expansion and its
// totals consistent with them. Every accepted mutation recomputes both
// before returning and then notifies subscribers in subscription order.
//
// A Session is safe for concurrent use. Subscribers run on the mutating
// goroutine and may read the session but must not mutate it.
type Session struct {
	cat *catalog.Catalog

	// publish serializes mutate-and-notify so subscribers see snapshots in
	// mutation order.
	publish sync.Mutex

	mu        sync.RWMutex
	objective Objective
	settings  Settings
	records   []Record
	totals    Totals
	err       error

	subs   []subscription
	nextID int
}

type subscription struct {
	id int
	fn func(Snapshot)
}

// NewSession creates a session over cat, which must not be nil, with no
// objective and default settings.
func NewSession(cat *catalog.Catalog) *Session {
	s := &Session{
		cat:      cat,
		settings: Settings{},
	}
	s.recompute()
	return s
}

// SetObjective sets the item and count to plan for. Invalid counts are
// rejected without changing the session. An unknown item is accepted; the
// failure is reported through Err and the snapshot.
func (s *Session) SetObjective(item string, count float64) error {
	o := Objective{Item: item, Count: count}
	if err := o.Validate(); err != nil {
		sessionMutations.WithLabelValues("objective", "rejected").Inc()
		return err
	}
	s.mutate(func() {
		s.objective = o
	})
	sessionMutations.WithLabelValues("objective", "accepted").Inc()
	return nil
}

// SetTier selects the speed tier of machine. Unknown machines and tiers out
// of range are rejected without changing the session.
func (s *Session) SetTier(machine string, tier int) error {
	if _, err := s.cat.Speed(machine, tier); err != nil {
		sessionMutations.WithLabelValues("tier", "rejected").Inc()
		return err
	}
	s.mutate(func() {
		next := s.settings.Clone()
		next[machine] = tier
		s.settings = next
	})
	sessionMutations.WithLabelValues("tier", "accepted").Inc()
	return nil
}

// ResetSettings returns every machine to tier 0.
func (s *Session) ResetSettings() {
	s.mutate(func() {
		s.settings = Settings{}
	})
	sessionMutations.WithLabelValues("reset", "accepted").Inc()
}

// Objective returns the current objective.
func (s *Session) Objective() Objective {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.objective
}

// Settings returns a copy of the current settings.
func (s *Session) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Clone()
}

// Records returns a copy of the current expansion.
func (s *Session) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records)
}

// Aggregate returns a copy of the totals of the current expansion.
func (s *Session) Aggregate() Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totals.Clone()
}

// Err returns the error of the last recompute, if any.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every accepted
// mutation. The returned func removes the subscription.
func (s *Session) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Session) mutate(apply func()) {
	s.publish.Lock()
	defer s.publish.Unlock()

	s.mu.Lock()
	apply()
	s.recompute()
	snap := s.snapshotLocked()
	subs := append([]subscription(nil), s.subs...)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(snap.clone())
	}
}

// recompute must be called with mu held.
func (s *Session) recompute() {
	records, err := Expand(context.Background(), s.cat, s.settings, s.objective.Item, s.objective.Count)
	if err != nil {
		slog.Debug("session recompute failed",
			"item", s.objective.Item,
			"count", s.objective.Count,
			"error", err)
		s.records = []Record{}
		s.totals = Totals{}
		s.err = err
		return
	}
	s.records = records
	s.totals = Aggregate(records)
	s.err = nil
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Objective: s.objective,
		Settings:  s.settings.Clone(),
		Records:   slices.Clone(s.records),
		Totals:    s.totals.Clone(),
		Err:       s.err,
	}
}

// clone gives each subscriber its own copy to read or modify.
func (sn Snapshot) clone() Snapshot {
	sn.Settings = sn.Settings.Clone()
	sn.Records = slices.Clone(sn.Records)
	sn.Totals = sn.Totals.Clone()
	return sn
}
