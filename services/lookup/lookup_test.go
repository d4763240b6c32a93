package lookup

import (
	"context"
	"errors"
	"testing"
	"time"

	"mhrs-tracker/lib/mhrs"

	"github.com/stretchr/testify/require"
)

type countingSource struct {
	calls                 map[string]int
	physicianInstitutions []int64
	err                   error
}

func (s *countingSource) Districts(ctx context.Context, token string, regionId int64) ([]mhrs.Option, error) {
	s.calls["districts"]++
	return []mhrs.Option{{Value: 1130, Text: "ÇANKAYA"}, {Value: 1231, Text: "KEÇİÖREN"}}, s.err
}

func (s *countingSource) Clinics(ctx context.Context, token string, regionId, districtId int64) ([]mhrs.Option, error) {
	s.calls["clinics"]++
	return []mhrs.Option{{Value: 165, Text: "Kardiyoloji"}, {Value: 175, Text: "Kadın Hastalıkları ve Doğum"}}, s.err
}

func (s *countingSource) Institutions(ctx context.Context, token string, regionId, districtId, clinicId int64) ([]mhrs.Option, error) {
	s.calls["institutions"]++
	return []mhrs.Option{{Value: -1, Text: "FARKETMEZ"}, {Value: 1021, Text: "Ankara Şehir Hastanesi"}}, s.err
}

func (s *countingSource) Physicians(ctx context.Context, token string, institutionId, clinicId int64) ([]mhrs.Option, error) {
	s.calls["physicians"]++
	s.physicianInstitutions = append(s.physicianInstitutions, institutionId)
	return []mhrs.Option{{Value: 77, Text: "AYŞE YILMAZ"}}, s.err
}

func TestServiceCaches(t *testing.T) {
	source := &countingSource{calls: map[string]int{}}
	s := NewService(source, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		districts, err := s.Districts(ctx, "a", 6)
		require.NoError(t, err)
		require.Len(t, districts, 2)
	}
	_, err := s.Districts(ctx, "b", 34)
	require.NoError(t, err)
	require.Equal(t, 2, source.calls["districts"])

	institutions, err := s.Institutions(ctx, "a", 6, 1130, 165)
	require.NoError(t, err)
	require.Equal(t, []mhrs.Option{{Value: -1, Text: AnyText}, {Value: 1021, Text: "Ankara Şehir Hastanesi"}}, institutions)

	physicians, err := s.Physicians(ctx, "a", mhrs.AnyId, 165)
	require.NoError(t, err)
	require.Equal(t, []mhrs.Option{{Value: -1, Text: AnyText}, {Value: 77, Text: "AYŞE YILMAZ"}}, physicians)

	physicians, err = s.Physicians(ctx, "a", 1021, 165)
	require.NoError(t, err)
	require.Len(t, physicians, 2)
	_, err = s.Physicians(ctx, "a", 1021, 165)
	require.NoError(t, err)
	require.Equal(t, []int64{mhrs.AnyId, 1021}, source.physicianInstitutions)
}

func TestServiceDoesNotCacheErrors(t *testing.T) {
	source := &countingSource{calls: map[string]int{}, err: errors.New("HTTP 503")}
	s := NewService(source, time.Hour)

	_, err := s.Clinics(context.Background(), "a", 6, 1130)
	require.Error(t, err)
	source.err = nil
	clinics, err := s.Clinics(context.Background(), "a", 6, 1130)
	require.NoError(t, err)
	require.Len(t, clinics, 2)
	require.Equal(t, 2, source.calls["clinics"])
}

func TestResolve(t *testing.T) {
	clinics := []mhrs.Option{
		{Value: 165, Text: "Kardiyoloji"},
		{Value: 175, Text: "Kadın Hastalıkları ve Doğum"},
		{Value: 180, Text: "Göz Hastalıkları"},
	}

	cases := []struct {
		input string
		value int64
		ok    bool
	}{
		{input: "165", value: 165, ok: true},
		{input: "#3", value: 180, ok: true},
		{input: "#4"},
		{input: "999"},
		{input: "kardiyoloji", value: 165, ok: true},
		{input: "KADIN HASTALIKLARI", value: 175, ok: true},
		{input: "göz", value: 180, ok: true},
		{input: "ortopedi"},
		{input: "  "},
	}
	for _, test := range cases {
		got, ok := Resolve(clinics, test.input)
		require.Equal(t, test.ok, ok, test.input)
		if test.ok {
			require.Equal(t, test.value, got.Value, test.input)
		}
	}
}

func TestRegions(t *testing.T) {
	regions := Regions()
	require.Len(t, regions, 81)
	require.Equal(t, mhrs.Option{Value: 6, Text: "ANKARA"}, regions[5])
	require.Equal(t, mhrs.Option{Value: 34, Text: "İSTANBUL"}, regions[33])
	require.Equal(t, mhrs.Option{Value: 81, Text: "DÜZCE"}, regions[80])
}
