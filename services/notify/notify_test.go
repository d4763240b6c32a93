package notify

import (
	"bytes"
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"mhrs-tracker/lib/timezone"
	"mhrs-tracker/services/tracker"

	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2025, time.March, 10, 10, 30, 0, 0, timezone.Location)

func slotFound() tracker.Event {
	return tracker.Event{
		Kind: tracker.EventSlotFound,
		At:   at,
		Tracker: tracker.TrackerInfo{
			Code:       "AB12CD",
			Subscriber: "555",
			Filter:     tracker.Filter{ClinicId: 165, ClinicName: "Kardiyoloji", InstitutionId: -1, PhysicianId: -1},
		},
		Slot: &tracker.Slot{
			Start:            time.Date(2025, time.March, 11, 9, 0, 0, 0, timezone.Location),
			ClinicName:       "Kardiyoloji",
			PhysicianName:    "AYŞE YILMAZ",
			InstitutionName:  "Ankara Şehir Hastanesi",
			ExamLocationName: "Poliklinik 3",
		},
	}
}

func TestText(t *testing.T) {
	require.Equal(t, `Slot found [AB12CD]
Time: 11.03.2025 09:00
Clinic: Kardiyoloji
Physician: AYŞE YILMAZ
Hospital: Ankara Şehir Hastanesi
Room: Poliklinik 3
It is not booked, reserve it on MHRS.`, Text(slotFound()))

	longBreak := tracker.Event{
		Kind:     tracker.EventLongBreak,
		Tracker:  tracker.TrackerInfo{Code: "X", Attempts: 10},
		Duration: 7*time.Minute + 20*time.Second,
	}
	require.Equal(t, "No slot for 10 tries [X], pausing for 7 min", Text(longBreak))

	failed := tracker.Event{
		Kind:    tracker.EventSessionExhausted,
		Tracker: tracker.TrackerInfo{Code: "X"},
		Err:     errors.New("session refresh exhausted"),
	}
	require.Equal(t, "Could not log in [X]\nReason: session refresh exhausted", Text(failed))
	require.Equal(t, "MHRS: Could not log in [X]", Subject(failed))

	booked := tracker.Event{
		Kind:    tracker.EventBooked,
		Tracker: tracker.TrackerInfo{Code: "X"},
		Booking: &tracker.Booking{
			Slot:          *slotFound().Slot,
			PhysicianName: "Dr. Ayşe Yılmaz",
			ClinicName:    "Kardiyoloji",
		},
	}
	text := Text(booked)
	require.True(t, strings.HasPrefix(text, "Appointment booked [X]"))
	require.Contains(t, text, "Physician: Dr. Ayşe Yılmaz")
	require.NotContains(t, text, "Room:")
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewConsole(&buf).Notify(context.Background(), slotFound()))
	require.True(t, strings.HasPrefix(buf.String(), "[10:30:00] Slot found [AB12CD]\n"))
}

type fakeSender struct {
	chats []string
	texts []string
	err   error
}

func (s *fakeSender) SendMessage(ctx context.Context, chatId, text string) error {
	s.chats = append(s.chats, chatId)
	s.texts = append(s.texts, text)
	return s.err
}

func TestTelegram(t *testing.T) {
	sender := &fakeSender{}
	require.NoError(t, NewTelegram(sender, "").Notify(context.Background(), slotFound()))
	require.NoError(t, NewTelegram(sender, "-100").Notify(context.Background(), slotFound()))
	require.Equal(t, []string{"555", "-100"}, sender.chats)
	require.Equal(t, Text(slotFound()), sender.texts[0])
}

func TestEmail(t *testing.T) {
	var sent []*email.Email
	var auths []smtp.Auth
	mailer := NewEmail(SmtpConfig{Server: "smtp.example.com", Port: 587, EmailAddress: "bot@example.com"}, []string{"me@example.com"})
	mailer.send = func(mail *email.Email, addr string, auth smtp.Auth) error {
		require.Equal(t, "smtp.example.com:587", addr)
		sent = append(sent, mail)
		auths = append(auths, auth)
		if auth != nil {
			return errors.New("smtp: server doesn't support AUTH")
		}
		return nil
	}

	require.NoError(t, mailer.Notify(context.Background(), slotFound()))
	require.Len(t, sent, 2)
	require.NotNil(t, auths[0])
	require.Nil(t, auths[1])
	require.Equal(t, "MHRS: Slot found [AB12CD]", sent[1].Subject)
	require.Equal(t, []string{"me@example.com"}, sent[1].To)
	require.Contains(t, string(sent[1].Text), "AYŞE YILMAZ")
}

func TestMultiAndOnly(t *testing.T) {
	first := &fakeSender{err: errors.New("blocked")}
	second := &fakeSender{}
	n := Multi(NewTelegram(first, ""), nil, Only(NewTelegram(second, ""), tracker.EventBooked))

	err := n.Notify(context.Background(), slotFound())
	require.ErrorContains(t, err, "blocked")
	require.Len(t, first.texts, 1)
	require.Empty(t, second.texts)

	err = n.Notify(context.Background(), tracker.Event{Kind: tracker.EventBooked})
	require.ErrorContains(t, err, "blocked")
	require.Len(t, second.texts, 1)
}
