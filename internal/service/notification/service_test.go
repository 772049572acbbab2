package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/scheduling-api/internal/model"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) DialAndSend(msgs ...*gomail.Message) error {
	args := m.Called(msgs)
	return args.Error(0)
}

func appointmentEvent(t *testing.T, eventType string) *model.OutboxEvent {
	t.Helper()
	payload, err := json.Marshal(&model.Appointment{
		Base:      model.Base{ID: uuid.New()},
		DoctorID:  uuid.New(),
		PatientID: uuid.New(),
		Date:      model.MustParseDate("2030-06-04"),
		StartTime: model.MustParseTimeOfDay("10:00"),
		EndTime:   model.MustParseTimeOfDay("10:30"),
		Status:    model.AppointmentStatusConfirmed,
	})
	require.NoError(t, err)
	return &model.OutboxEvent{ID: uuid.New(), EventType: eventType, Payload: payload}
}

func TestNotifySendsAppointmentEvents(t *testing.T) {
	sender := new(mockSender)
	sender.On("DialAndSend", mock.MatchedBy(func(msgs []*gomail.Message) bool {
		return len(msgs) == 1 &&
			msgs[0].GetHeader("To")[0] == "desk@clinic.test" &&
			msgs[0].GetHeader("Subject")[0] == "New appointment: 2030-06-04 10:00"
	})).Return(nil).Once()

	svc := NewServiceWithSender(sender, "scheduler@clinic.test", "desk@clinic.test", zerolog.Nop())
	require.NoError(t, svc.Notify(context.Background(), appointmentEvent(t, model.EventAppointmentBooked)))
	sender.AssertExpectations(t)
}

func TestNotifyIgnoresOtherEvents(t *testing.T) {
	sender := new(mockSender)
	svc := NewServiceWithSender(sender, "a@clinic.test", "b@clinic.test", zerolog.Nop())

	err := svc.Notify(context.Background(), &model.OutboxEvent{EventType: model.EventSlotBlocked, Payload: []byte(`{}`)})
	require.NoError(t, err)
	sender.AssertNotCalled(t, "DialAndSend", mock.Anything)
}

func TestNotifyPropagatesSendFailure(t *testing.T) {
	sender := new(mockSender)
	sender.On("DialAndSend", mock.Anything).Return(errors.New("connection refused"))

	svc := NewServiceWithSender(sender, "a@clinic.test", "b@clinic.test", zerolog.Nop())
	err := svc.Notify(context.Background(), appointmentEvent(t, model.EventAppointmentCancelled))
	assert.ErrorContains(t, err, "connection refused")
}
