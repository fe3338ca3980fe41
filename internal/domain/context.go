package domain

// TripContext holds the structured trip fields threaded through every stage.
type TripContext struct {
	Destination    string `json:"destination,omitempty"`
	StartDate      string `json:"start_date,omitempty"`
	EndDate        string `json:"end_date,omitempty"`
	Budget         string `json:"budget,omitempty"`
	TravelStyle    string `json:"travel_style,omitempty"`
	NumberOfPeople *int   `json:"number_of_people,omitempty"`
	ConversationID string `json:"conversation_id"`
}

// ContextUpdate is a partial update: nil fields leave the current value alone.
type ContextUpdate struct {
	Destination    *string `json:"destination,omitempty" mapstructure:"destination"`
	StartDate      *string `json:"start_date,omitempty" mapstructure:"start_date"`
	EndDate        *string `json:"end_date,omitempty" mapstructure:"end_date"`
	Budget         *string `json:"budget,omitempty" mapstructure:"budget"`
	TravelStyle    *string `json:"travel_style,omitempty" mapstructure:"travel_style"`
	NumberOfPeople *int    `json:"number_of_people,omitempty" mapstructure:"number_of_people"`
	ConversationID *string `json:"conversation_id,omitempty" mapstructure:"conversation_id"`
}

// Apply overwrites the fields present in u and returns the names of the
// fields that were set.
func (c *TripContext) Apply(u ContextUpdate) []string {
	var set []string
	str := func(name string, dst *string, src *string) {
		if src != nil {
			*dst = *src
			set = append(set, name)
		}
	}
	str("destination", &c.Destination, u.Destination)
	str("start_date", &c.StartDate, u.StartDate)
	str("end_date", &c.EndDate, u.EndDate)
	str("budget", &c.Budget, u.Budget)
	str("travel_style", &c.TravelStyle, u.TravelStyle)
	if u.NumberOfPeople != nil {
		n := *u.NumberOfPeople
		c.NumberOfPeople = &n
		set = append(set, "number_of_people")
	}
	str("conversation_id", &c.ConversationID, u.ConversationID)
	return set
}

// Missing returns the itinerary prerequisites that are still unset.
func (c TripContext) Missing() []string {
	var missing []string
	if c.Destination == "" {
		missing = append(missing, "destination")
	}
	if c.StartDate == "" {
		missing = append(missing, "start_date")
	}
	if c.EndDate == "" {
		missing = append(missing, "end_date")
	}
	return missing
}

// ReadyForItinerary reports whether destination and both dates are set.
func (c TripContext) ReadyForItinerary() bool {
	return len(c.Missing()) == 0
}

// Adults returns the party size used for lodging searches: the configured
// number of people, 2 when unset, never less than 1.
func (c TripContext) Adults() int {
	n := 2
	if c.NumberOfPeople != nil && *c.NumberOfPeople != 0 {
		n = *c.NumberOfPeople
	}
	return max(1, n)
}

// Clone returns a deep copy.
func (c TripContext) Clone() TripContext {
	out := c
	if c.NumberOfPeople != nil {
		n := *c.NumberOfPeople
		out.NumberOfPeople = &n
	}
	return out
}
