package trainingload

import (
	"context"
	"sort"
	"time"
)

// repoMock is an in-memory Repo. InTx snapshots the state and restores it
// when the callback fails.
type repoMock struct {
	activities map[int64]Activity
	profiles   map[int64]AthleteProfile
	daily      map[int64]map[time.Time]DailyMetric

	upsertErr      error
	listDailyCalls int
}

func newRepoMock() *repoMock {
	return &repoMock{
		activities: make(map[int64]Activity),
		profiles:   make(map[int64]AthleteProfile),
		daily:      make(map[int64]map[time.Time]DailyMetric),
	}
}

func (r *repoMock) addActivity(a Activity) {
	r.activities[a.ID] = a
}

func (r *repoMock) dailyRows(athleteID int64) []DailyMetric {
	rows := make([]DailyMetric, 0, len(r.daily[athleteID]))
	for _, m := range r.daily[athleteID] {
		rows = append(rows, m)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Day.Before(rows[j].Day)
	})
	return rows
}

func (r *repoMock) snapshot() *repoMock {
	c := newRepoMock()
	for id, a := range r.activities {
		c.activities[id] = a
	}
	for id, p := range r.profiles {
		c.profiles[id] = p
	}
	for id, days := range r.daily {
		c.daily[id] = make(map[time.Time]DailyMetric, len(days))
		for d, m := range days {
			c.daily[id][d] = m
		}
	}
	return c
}

func (r *repoMock) ListActivities(_ context.Context, athleteID int64) ([]Activity, error) {
	var activities []Activity
	for _, a := range r.activities {
		if a.AthleteID == athleteID {
			activities = append(activities, a)
		}
	}
	sort.Slice(activities, func(i, j int) bool {
		if activities[i].StartDate.Equal(activities[j].StartDate) {
			return activities[i].ID < activities[j].ID
		}
		return activities[i].StartDate.Before(activities[j].StartDate)
	})
	return activities, nil
}

func (r *repoMock) GetProfile(_ context.Context, athleteID int64) (*AthleteProfile, error) {
	p, ok := r.profiles[athleteID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *repoMock) UpdateActivityDays(_ context.Context, activities []Activity) error {
	for _, a := range activities {
		stored := r.activities[a.ID]
		stored.Day = a.Day
		r.activities[a.ID] = stored
	}
	return nil
}

func (r *repoMock) UpdateActivityMetrics(_ context.Context, activities []Activity) error {
	for _, a := range activities {
		stored := r.activities[a.ID]
		stored.TSS, stored.TSSMethod = a.TSS, a.TSSMethod
		stored.IFValue, stored.IFMethod = a.IFValue, a.IFMethod
		stored.WorkKJ = a.WorkKJ
		stored.EF, stored.EFMethod = a.EF, a.EFMethod
		r.activities[a.ID] = stored
	}
	return nil
}

func (r *repoMock) DailyMetricBefore(_ context.Context, athleteID int64, day time.Time) (*DailyMetric, error) {
	var found *DailyMetric
	for _, m := range r.daily[athleteID] {
		if !m.Day.Before(day) {
			continue
		}
		if found == nil || m.Day.After(found.Day) {
			m := m
			found = &m
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (r *repoMock) UpsertDailyMetrics(_ context.Context, rows []DailyMetric) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	for _, m := range rows {
		if r.daily[m.AthleteID] == nil {
			r.daily[m.AthleteID] = make(map[time.Time]DailyMetric)
		}
		r.daily[m.AthleteID][m.Day] = m
	}
	return nil
}

func (r *repoMock) ListDailyMetrics(_ context.Context, athleteID int64, from, to time.Time) ([]DailyMetric, error) {
	r.listDailyCalls++
	var rows []DailyMetric
	for _, m := range r.dailyRows(athleteID) {
		if m.Day.Before(from) || m.Day.After(to) {
			continue
		}
		rows = append(rows, m)
	}
	return rows, nil
}

func (r *repoMock) LatestDailyMetrics(_ context.Context, athleteID int64, limit int) ([]DailyMetric, error) {
	rows := r.dailyRows(athleteID)
	latest := make([]DailyMetric, 0, limit)
	for i := len(rows) - 1; i >= 0 && len(latest) < limit; i-- {
		latest = append(latest, rows[i])
	}
	return latest, nil
}

func (r *repoMock) InTx(_ context.Context, fn func(repo Repo) error) error {
	before := r.snapshot()
	if err := fn(r); err != nil {
		r.activities = before.activities
		r.profiles = before.profiles
		r.daily = before.daily
		return err
	}
	return nil
}
