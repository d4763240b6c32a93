package tracker

import (
	"context"
	"errors"
	"testing"

	"mhrs-tracker/lib/mhrs"

	"github.com/stretchr/testify/require"
)

func TestBookingConfirmationNames(t *testing.T) {
	slot := Slot{
		Id:               9,
		ScheduleId:       44,
		ExamLocationId:   501,
		RawStart:         "2025-03-11 09:00:00",
		RawEnd:           "2025-03-11 09:10:00",
		ClinicName:       "Kardiyoloji",
		PhysicianName:    "AYŞE YILMAZ",
		ExamLocationName: "Poliklinik 3",
	}
	success := true
	api := &fakeAPI{reserve: func(req mhrs.ReserveRequest) (mhrs.ReserveResult, error) {
		return mhrs.ReserveResult{
			Success: &success,
			Data: mhrs.ReserveConfirmation{
				Physician: mhrs.Physician{FullName: "Dr. Ayşe Yılmaz"},
			},
		}, nil
	}}

	booking, err := NewBookingExecutor(api).Book(context.Background(), "tok", slot)
	require.NoError(t, err)
	require.Equal(t, "Dr. Ayşe Yılmaz", booking.PhysicianName)
	require.Equal(t, "Kardiyoloji", booking.ClinicName)
	require.Equal(t, "Poliklinik 3", booking.ExamLocationName)
	require.Equal(t, []mhrs.ReserveRequest{{
		SlotId:         9,
		ScheduleId:     44,
		ExamLocationId: 501,
		Start:          "2025-03-11 09:00:00",
		End:            "2025-03-11 09:10:00",
	}}, api.reserves)
}

func TestBookingUnreadableSuccess(t *testing.T) {
	api := &fakeAPI{}
	booking, err := NewBookingExecutor(api).Book(context.Background(), "tok", Slot{ClinicName: "Göz"})
	require.NoError(t, err)
	require.Equal(t, "Göz", booking.ClinicName)
}

func TestBookingRejected(t *testing.T) {
	failed := false
	cases := []struct {
		name    string
		result  mhrs.ReserveResult
		err     error
		message string
	}{
		{
			name:    "explicit failure",
			result:  mhrs.ReserveResult{Success: &failed, Warnings: []mhrs.Warning{{Code: "RND4010", Message: "<p>Slot dolu</p>"}}},
			message: "booking rejected: RND4010: Slot dolu",
		},
		{
			name:    "failure without warning",
			result:  mhrs.ReserveResult{Success: &failed},
			message: "booking rejected",
		},
		{
			name: "status",
			err:  &mhrs.StatusError{Endpoint: "Reserve", StatusCode: 409},
		},
		{
			name: "transport",
			err:  errors.New("connection reset"),
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			api := &fakeAPI{reserve: func(req mhrs.ReserveRequest) (mhrs.ReserveResult, error) {
				return test.result, test.err
			}}
			_, err := NewBookingExecutor(api).Book(context.Background(), "tok", Slot{Id: 1})
			require.ErrorIs(t, err, ErrBookingRejected)
			if test.message != "" {
				require.Equal(t, test.message, err.Error())
			}
			if test.err != nil {
				require.ErrorIs(t, err, test.err)
			}
		})
	}
}
