package mail

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
)

type sent struct {
	from string
	to   []string
	raw  string
}

func capture(out *[]sent) gomail.SendFunc {
	return func(from string, to []string, msg io.WriterTo) error {
		var buf bytes.Buffer
		if _, err := msg.WriteTo(&buf); err != nil {
			return err
		}
		*out = append(*out, sent{from: from, to: to, raw: buf.String()})
		return nil
	}
}

func TestSendStageNotification(t *testing.T) {
	var out []sent
	s := NewEmailSender("", 0, "", "", "crm@x.com").WithSender(capture(&out))

	err := s.SendStageNotification([]string{"team@x.com"}, entity.PipelineEvent{
		Type:         entity.EventLeadMoved,
		PipelineName: "Sales",
		LeadName:     "Ana",
		LeadEmail:    "a@x.com",
		FromStage:    "New",
		ToStage:      "Contacted",
		OccurredAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "crm@x.com", out[0].from)
	assert.Equal(t, []string{"team@x.com"}, out[0].to)
	assert.Contains(t, out[0].raw, "Subject: [Sales] Ana moved to Contacted")
	assert.Contains(t, out[0].raw, "Contacted")

	err = s.SendStageNotification([]string{"team@x.com"}, entity.PipelineEvent{
		Type: entity.EventStageDeleted, PipelineName: "Sales", Stage: "Lost",
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Contains(t, out[1].raw, "stage Lost removed")
}

// TestSendStageNotificationSkips - untemplated events and empty recipient lists send nothing
func TestSendStageNotificationSkips(t *testing.T) {
	var out []sent
	s := NewEmailSender("", 0, "", "", "crm@x.com").WithSender(capture(&out))

	require.NoError(t, s.SendStageNotification([]string{"team@x.com"}, entity.PipelineEvent{Type: entity.EventPipelineCreated}))
	require.NoError(t, s.SendStageNotification(nil, entity.PipelineEvent{Type: entity.EventLeadMoved}))
	assert.Empty(t, out)
}

func TestSendStageNotificationError(t *testing.T) {
	s := NewEmailSender("", 0, "", "", "crm@x.com").WithSender(gomail.SendFunc(func(string, []string, io.WriterTo) error {
		return errors.New("relay refused")
	}))

	err := s.SendStageNotification([]string{"team@x.com"}, entity.PipelineEvent{Type: entity.EventStageDeleted, Stage: "Lost"})
	assert.ErrorContains(t, err, "relay refused")
}
