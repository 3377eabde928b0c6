package gateway

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/foodshare/internal/client/models"
)

// Wire formats keep the backend's field names.

const (
	membershipYes = "yes"
	membershipNo  = "no"

	// wireTimeLayout matches what an HTML datetime-local input produces,
	// which is what the backend has always stored.
	wireTimeLayout = "2006-01-02T15:04"
)

var acceptedTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	wireTimeLayout,
	"2006-01-02",
}

// flexID accepts a plain string or an extended-JSON {"$oid": "..."}.
type flexID string

func (id *flexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = flexID(s)
		return nil
	}
	var oid struct {
		OID string `json:"$oid"`
	}
	if err := json.Unmarshal(b, &oid); err != nil {
		return err
	}
	*id = flexID(oid.OID)
	return nil
}

// flexInt accepts a JSON number or a numeric string; form inputs reach the
// backend as strings.
type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*n = 0
			return nil
		}
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return err
		}
		*n = flexInt(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = flexInt(int(f))
	return nil
}

// flexTime parses the handful of layouts seen in stored records. An
// unparseable value decodes as the zero time, which reads as expired.
type flexTime time.Time

func (t *flexTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*t = flexTime{}
		return nil
	}
	*t = flexTime(parseWireTime(s))
	return nil
}

func (t flexTime) MarshalJSON() ([]byte, error) {
	tt := time.Time(t)
	if tt.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(tt.UTC().Format(wireTimeLayout))
}

func parseWireTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range acceptedTimeLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			return v
		}
	}
	return time.Time{}
}

type userDTO struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	PhotoURL   string `json:"photourl"`
	Membership string `json:"membership"`
	Post       int    `json:"post"`
}

// countDTO accepts {"count": n} or a bare number.
type countDTO struct {
	Count int
}

func (c *countDTO) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var obj struct {
			Count flexInt `json:"count"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		c.Count = int(obj.Count)
		return nil
	}
	var n flexInt
	if err := n.UnmarshalJSON(b); err != nil {
		return err
	}
	c.Count = int(n)
	return nil
}

type membershipDTO struct {
	Membership string `json:"membership"`
}

type foodDTO struct {
	ID              flexID   `json:"_id,omitempty"`
	FoodName        string   `json:"foodName"`
	FoodImage       string   `json:"foodImage"`
	FoodQuantity    flexInt  `json:"foodQuantity"`
	PickupLocation  string   `json:"pickupLocation"`
	ExpiredDateTime flexTime `json:"expiredDateTime"`
	AdditionalNotes string   `json:"additionalNotes"`
	DonorName       string   `json:"donorName"`
	DonorEmail      string   `json:"donorEmail"`
	DonorImage      string   `json:"donorImage"`
	FoodStatus      string   `json:"foodStatus"`
}

func foodFromDraft(d models.ListingDraft, status models.ListingStatus) foodDTO {
	return foodDTO{
		FoodName:        d.Name,
		FoodImage:       d.ImageURL,
		FoodQuantity:    flexInt(d.Quantity),
		PickupLocation:  d.PickupLocation,
		ExpiredDateTime: flexTime(d.Expiry),
		AdditionalNotes: d.Notes,
		DonorName:       d.OwnerName,
		DonorEmail:      d.OwnerEmail,
		DonorImage:      d.OwnerImage,
		FoodStatus:      string(status),
	}
}

func (f foodDTO) toModel() models.Listing {
	status := models.ListingAvailable
	if strings.EqualFold(f.FoodStatus, string(models.ListingRequested)) {
		status = models.ListingRequested
	}
	return models.Listing{
		ID: string(f.ID),
		ListingDraft: models.ListingDraft{
			Name:           f.FoodName,
			ImageURL:       f.FoodImage,
			Quantity:       int(f.FoodQuantity),
			PickupLocation: f.PickupLocation,
			Expiry:         time.Time(f.ExpiredDateTime),
			Notes:          f.AdditionalNotes,
			OwnerEmail:     f.DonorEmail,
			OwnerName:      f.DonorName,
			OwnerImage:     f.DonorImage,
		},
		Status: status,
	}
}

type requestDTO struct {
	ID                flexID   `json:"_id,omitempty"`
	FoodID            flexID   `json:"foodId"`
	FoodName          string   `json:"foodName"`
	FoodImage         string   `json:"foodImage"`
	FoodDonatorName   string   `json:"foodDonatorName"`
	UserEmail         string   `json:"userEmail"`
	RequestDate       flexTime `json:"requestDate"`
	PickupLocation    string   `json:"pickupLocation"`
	ExpireDate        flexTime `json:"expireDate"`
	AdditionalNotes   string   `json:"additionalNotes"`
	RequestedQuantity flexInt  `json:"requestedQuantity"`
}

func requestFromModel(r models.FoodRequest) requestDTO {
	return requestDTO{
		FoodID:            flexID(r.ListingID),
		FoodName:          r.FoodName,
		FoodImage:         r.FoodImage,
		FoodDonatorName:   r.DonorName,
		UserEmail:         r.RequesterEmail,
		RequestDate:       flexTime(r.RequestDate),
		PickupLocation:    r.PickupLocation,
		ExpireDate:        flexTime(r.Expiry),
		AdditionalNotes:   r.Notes,
		RequestedQuantity: flexInt(r.RequestedQuantity),
	}
}

func (r requestDTO) toModel() models.FoodRequest {
	return models.FoodRequest{
		ID:                string(r.ID),
		ListingID:         string(r.FoodID),
		RequesterEmail:    r.UserEmail,
		RequestedQuantity: int(r.RequestedQuantity),
		Notes:             r.AdditionalNotes,
		FoodName:          r.FoodName,
		FoodImage:         r.FoodImage,
		DonorName:         r.FoodDonatorName,
		PickupLocation:    r.PickupLocation,
		Expiry:            time.Time(r.ExpireDate),
		RequestDate:       time.Time(r.RequestDate),
	}
}

type insertResultDTO struct {
	InsertedID flexID `json:"insertedId"`
}

type paymentIntentRequestDTO struct {
	Price int `json:"price"`
}

type paymentIntentDTO struct {
	ClientSecret string `json:"clientSecret"`
}

type messageDTO struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
