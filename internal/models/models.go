package models

// All returns every persisted entity in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&AccessToken{},
		&DisasterReport{},
		&ReportImage{},
		&ForumMessage{},
		&Notification{},
		&Publication{},
		&PublicationComment{},
		&SecurityEvent{},
	}
}
