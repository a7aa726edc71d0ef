package recordform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/haulbook/internal/api"
	"github.com/nhle/haulbook/internal/model"
	"github.com/nhle/haulbook/internal/records"
	"github.com/nhle/haulbook/internal/ui"
)

type stubSource struct {
	existing model.Record
	created  []model.Record
	updated  map[int64]model.Record
	err      error
}

func (s *stubSource) GetRecord(_ context.Context, id int64) (*model.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	r := s.existing
	r.ID = id
	return &r, nil
}

func (s *stubSource) CreateRecord(_ context.Context, r model.Record) (*model.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = append(s.created, r)
	r.ID = int64(len(s.created))
	return &r, nil
}

func (s *stubSource) UpdateRecord(_ context.Context, id int64, r model.Record) (*model.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.updated == nil {
		s.updated = make(map[int64]model.Record)
	}
	s.updated[id] = r
	return &r, nil
}

func filled() model.Record {
	return model.Record{
		Date:         "2024-03-02",
		PONumber:     "PO-7",
		LocationFrom: "Dallas",
		LocationTo:   "Memphis",
		DHMiles:      model.Decimal{Raw: "10"},
		Miles:        model.Decimal{Raw: "450"},
		Fuel:         model.Decimal{Raw: "200"},
		Food:         model.Decimal{Raw: "20"},
		Lumper:       model.Decimal{Raw: "0"},
		Pay:          model.Decimal{Raw: "1200"},
	}
}

func TestEditLoadsAndUpdates(t *testing.T) {
	src := &stubSource{existing: filled()}
	m := New(src, nil, 100, 40)

	cmd := m.StartEdit(5)
	assert.Contains(t, m.View(), "Loading")
	m, _ = m.Update(cmd())
	require.NotNil(t, m.form)
	assert.Equal(t, "PO-7", m.fb.PONumber)

	m.fb.Pay = "1500"
	m, cmd = m.handleSubmit()
	require.True(t, m.saving)
	m, cmd = m.Update(cmd())
	require.NotNil(t, cmd)

	saved, ok := cmd().(SavedMsg)
	require.True(t, ok)
	assert.Equal(t, "1500", saved.Record.Pay.Raw)
	assert.Equal(t, "1500", src.updated[5].Pay.Raw)
	assert.Empty(t, src.created)
}

func TestCreateRejectsInvalidDraftLocally(t *testing.T) {
	src := &stubSource{}
	m := New(src, nil, 100, 40)
	m.StartCreate()

	m.fb.Date = "tomorrow"
	m, _ = m.handleSubmit()
	assert.False(t, m.saving)
	assert.Contains(t, m.err, "required")
	assert.Empty(t, src.created)
}

func TestCreateFailureKeepsValues(t *testing.T) {
	src := &stubSource{}
	m := New(src, nil, 100, 40)
	m.StartCreate()
	*m.fb = records.DraftFrom(filled())

	m, cmd := m.handleSubmit()
	src.err = &api.StatusError{Code: 500}
	m, _ = m.Update(cmd())

	assert.Equal(t, "Failed to create record. Please try again.", m.err)
	assert.Equal(t, "PO-7", m.fb.PONumber)
	assert.NotNil(t, m.form)
}

func TestEditAuthFailureExpiresSession(t *testing.T) {
	src := &stubSource{err: &api.AuthError{Code: 401}}
	m := New(src, nil, 100, 40)

	load := m.StartEdit(3)
	m, cmd := m.Update(load())
	assert.Equal(t, ui.SessionExpiredText, m.err)
	require.NotNil(t, cmd)
	assert.Equal(t, ui.SessionExpiredMsg{}, cmd())
}
