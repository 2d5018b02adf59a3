package models

type CrashReport struct {
	ID           string `json:"id"`
	AppID        string `json:"appId"`
	DeviceID     string `json:"deviceId"`
	Timestamp    string `json:"timestamp"`
	Type         string `json:"type"`
	Title        string `json:"title"`
	Subtitle     string `json:"subtitle"`
	Error        string `json:"error"`
	StackTrace   string `json:"stackTrace"`
	AffectedFile string `json:"affectedFile"`
	EventsCount  int    `json:"eventsCount"`
	UsersCount   int    `json:"usersCount"`
	Trend        []int  `json:"trend"`
}
