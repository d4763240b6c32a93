package mhrs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// AnyId is sent in place of an optional institution, physician or
	// exam location id.
	AnyId int64 = -1

	searchActionId = "200"
	dateLayout     = "2006-01-02"
)

// Option is an entry of the select-input lists used by the lookup
// endpoints. Some endpoints encode the value as a number and others as a
// string.
type Option struct {
	Value int64
	Text  string
}

func (o *Option) UnmarshalJSON(data []byte) error {
	var raw struct {
		Value json.RawMessage `json:"value"`
		Text  string          `json:"text"`
	}
	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}
	o.Text = strings.TrimSpace(raw.Text)

	value := bytes.TrimSpace(raw.Value)
	if len(value) == 0 || string(value) == "null" {
		o.Value = 0
		return nil
	}
	if value[0] == '"' {
		var s string
		err = json.Unmarshal(value, &s)
		if err != nil {
			return err
		}
		value = []byte(strings.TrimSpace(s))
	}
	o.Value, err = strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		return fmt.Errorf("option %q: value %s is not an id", o.Text, value)
	}
	return nil
}

// SearchFilter selects which slots a search returns, use AnyId for the
// optional fields.
type SearchFilter struct {
	RegionId      int64
	DistrictId    int64
	ClinicId      int64
	InstitutionId int64
	PhysicianId   int64
}

type SearchRequest struct {
	ActionId         string   `json:"aksiyonId"`
	Start            string   `json:"baslangicZamani"`
	End              string   `json:"bitisZamani"`
	Gender           string   `json:"cinsiyet"`
	Additional       bool     `json:"ekRandevu"`
	PhysicianId      int64    `json:"mhrsHekimId"`
	RegionId         int64    `json:"mhrsIlId"`
	DistrictId       int64    `json:"mhrsIlceId"`
	ClinicId         int64    `json:"mhrsKlinikId"`
	InstitutionId    int64    `json:"mhrsKurumId"`
	ExamLocationId   int64    `json:"muayeneYeriId"`
	AppointmentTimes []string `json:"randevuZamaniList"`
	AllAppointments  bool     `json:"tumRandevular"`
}

// NewSearchRequest builds the search payload for the days from..until,
// the server is asked for 08:00:00 on the first day through 23:59:59 on
// the last.
func NewSearchRequest(filter SearchFilter, from, until time.Time) SearchRequest {
	return SearchRequest{
		ActionId:         searchActionId,
		Start:            from.Format(dateLayout) + " 08:00:00",
		End:              until.Format(dateLayout) + " 23:59:59",
		Gender:           "F",
		Additional:       true,
		PhysicianId:      filter.PhysicianId,
		RegionId:         filter.RegionId,
		DistrictId:       filter.DistrictId,
		ClinicId:         filter.ClinicId,
		InstitutionId:    filter.InstitutionId,
		ExamLocationId:   AnyId,
		AppointmentTimes: []string{},
		AllAppointments:  false,
	}
}

type SearchResult struct {
	Institutions []InstitutionSlots `json:"data"`
	Warnings     []Warning          `json:"warnings"`
}

type Institution struct {
	Id   int64  `json:"mhrsKurumId"`
	Name string `json:"kurumAdi"`
}

type Clinic struct {
	Id        int64  `json:"mhrsKlinikId"`
	Name      string `json:"mhrsKlinikAdi"`
	ShortName string `json:"kisaAdi"`
}

func (c Clinic) DisplayName() string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	return strings.TrimSpace(c.ShortName)
}

type InstitutionSlots struct {
	Institution Institution      `json:"kurum"`
	Clinic      Clinic           `json:"klinik"`
	Physicians  []PhysicianSlots `json:"hekimSlotList"`
}

// Physician is the physician node of a response. Depending on the
// endpoint the name is split into ad/soyad or given whole under one of
// several keys.
type Physician struct {
	Id        int64  `json:"mhrsHekimId"`
	FirstName string `json:"ad"`
	LastName  string `json:"soyad"`
	Name      string `json:"hekimAdi"`
	ShortName string `json:"hekimAd"`
	FullName  string `json:"hekimAdiSoyadi"`
	Text      string `json:"text"`
}

// DisplayName returns "" when no name is present.
func (p Physician) DisplayName() string {
	joined := strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
	if joined != "" {
		return joined
	}
	for _, candidate := range []string{p.Name, p.ShortName, p.FullName, p.Text} {
		if candidate = strings.TrimSpace(candidate); candidate != "" {
			return candidate
		}
	}
	return ""
}

type PhysicianSlots struct {
	// the node itself sometimes carries the physician fields
	Physician
	Info          *Physician          `json:"hekim"`
	ExamLocations []ExamLocationSlots `json:"muayeneYeriSlotList"`
}

// PhysicianName prefers the nested "hekim" object over fields on the node.
func (p PhysicianSlots) PhysicianName() string {
	if p.Info != nil {
		return p.Info.DisplayName()
	}
	return p.Physician.DisplayName()
}

type ExamLocation struct {
	Id   int64  `json:"id"`
	Name string `json:"adi"`
}

type ExamLocationSlots struct {
	ExamLocation ExamLocation `json:"muayeneYeri"`
	Hours        []HourSlots  `json:"saatSlotList"`
}

type HourSlots struct {
	Slots []SlotEntry `json:"slotList"`
}

type SlotEntry struct {
	Id        int64      `json:"id"`
	Available bool       `json:"bos"`
	Start     string     `json:"baslangicZamani"`
	End       string     `json:"bitisZamani"`
	Detail    SlotDetail `json:"slot"`
}

type SlotDetail struct {
	ScheduleId     int64  `json:"fkCetvelId"`
	ExamLocationId *int64 `json:"muayeneYeriId"`
}

type ReserveRequest struct {
	SlotId         int64  `json:"fkSlotId"`
	ScheduleId     int64  `json:"fkCetvelId"`
	ExamLocationId int64  `json:"muayeneYeriId"`
	Newborn        bool   `json:"yenidogan"`
	Note           string `json:"randevuNotu"`
	Start          string `json:"baslangicZamani"`
	End            string `json:"bitisZamani"`
}

type ReserveResult struct {
	// nil when the body did not carry the flag
	Success  *bool               `json:"success"`
	Data     ReserveConfirmation `json:"data"`
	Warnings []Warning           `json:"warnings"`
}

// Rejected is true only when the server explicitly reported failure.
func (r ReserveResult) Rejected() bool {
	return r.Success != nil && !*r.Success
}

type ReserveConfirmation struct {
	Physician    Physician    `json:"hekim"`
	Clinic       Clinic       `json:"klinik"`
	ExamLocation ExamLocation `json:"muayeneYeri"`
}

type Patient struct {
	FirstName string `json:"adi"`
	LastName  string `json:"soyadi"`
}

func (p Patient) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04",
}

// ParseTimestamp parses the timestamps found in slot entries, values
// without a zone are interpreted in loc.
func ParseTimestamp(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, value, loc)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized timestamp %q", ErrMalformedResponse, value)
}
