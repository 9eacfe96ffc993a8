package delivery

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/persistence/file"
	"github.com/guestflow/guestflow/pkg/repository"
)

func TestSimulator_SendMarksSentThenDelivered(t *testing.T) {
	repos := repository.New(file.NewStore(t.TempDir()))

	simulator := NewSimulator(repos.Messages, slog.Default())
	simulator.deliveryLag = 10 * time.Millisecond

	ctx := context.Background()
	message := &models.MessageLog{
		ProjectID:   "proj",
		CampaignID:  "camp-1",
		ExecutionID: "exec-1",
		GuestID:     "guest-1",
		NodeID:      "node-1",
		Body:        "Hi Alice!",
		Status:      models.MessageStatusQueued,
	}

	require.NoError(t, simulator.Send(ctx, message))

	assert.Equal(t, models.MessageStatusSent, message.Status)
	require.NotNil(t, message.SentAt)
	require.NotEmpty(t, message.ID)

	require.Eventually(t, func() bool {
		stored, err := repos.Messages.GetByID(ctx, "proj", message.ID)
		if err != nil {
			return false
		}

		return stored.Status == models.MessageStatusDelivered && stored.DeliveredAt != nil
	}, time.Second, 5*time.Millisecond)
}
