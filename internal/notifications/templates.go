package notifications

import (
	"fmt"
	"time"
)

const (
	KindNewApplication       = "NEW_APPLICATION"
	KindInterviewAccepted    = "INTERVIEW_ACCEPTED"
	KindQuotaReached         = "QUOTA_REACHED"
	KindApplicationRejected  = "APPLICATION_REJECTED"
	KindApplicationCancelled = "APPLICATION_CANCELLED"
	KindInvitation           = "INVITATION"
	KindInterviewCancelled   = "INTERVIEW_CANCELLED"
	KindReminder             = "REMINDER"
)

const (
	dateTimeLayout = "Mon 2 Jan 2006 at 15:04"
	clockLayout    = "15:04"
)

func NewApplication(companyUserID, jobTitle string) Message {
	return Message{
		UserID:  companyUserID,
		Kind:    KindNewApplication,
		Title:   "New Application",
		Message: fmt.Sprintf("A new candidate applied to %q and is ready for review.", jobTitle),
	}
}

// InterviewAccepted formats start in its own location; callers pass grid-local times.
func InterviewAccepted(studentID string, start time.Time, room, venue string) Message {
	return Message{
		UserID:  studentID,
		Kind:    KindInterviewAccepted,
		Title:   "Interview Confirmed!",
		Message: fmt.Sprintf("Your interview is confirmed. See you at %s, room %s, on %s.", venue, room, start.Format(dateTimeLayout)),
	}
}

func QuotaReached(studentID string) Message {
	return Message{
		UserID:  studentID,
		Kind:    KindQuotaReached,
		Title:   "Offer Closed",
		Message: "This offer is full. Your token was released for another company.",
	}
}

func ApplicationRejected(studentID, jobTitle string) Message {
	return Message{
		UserID:  studentID,
		Kind:    KindApplicationRejected,
		Title:   "Application Declined",
		Message: fmt.Sprintf("Your application to %q was declined. Your token was released.", jobTitle),
	}
}

func ApplicationCancelled(studentID, jobTitle string) Message {
	return Message{
		UserID:  studentID,
		Kind:    KindApplicationCancelled,
		Title:   "Application Cancelled",
		Message: fmt.Sprintf("Your application to %q was cancelled by the company. Your token was released.", jobTitle),
	}
}

func Invitation(studentID, jobTitle string, start time.Time, room, venue string) Message {
	return Message{
		UserID: studentID,
		Kind:   KindInvitation,
		Title:  "Interview Invitation",
		Message: fmt.Sprintf("A company invited you for %q. A slot was booked at %s, room %s, on %s.",
			jobTitle, venue, room, start.Format(dateTimeLayout)),
	}
}

func InterviewCancelled(studentID, title string, start time.Time) Message {
	return Message{
		UserID:  studentID,
		Kind:    KindInterviewCancelled,
		Title:   "Interview Cancelled",
		Message: fmt.Sprintf("%s planned on %s was cancelled.", title, start.Format(dateTimeLayout)),
	}
}

func Reminder(studentID string, start time.Time, venue string) Message {
	return Message{
		UserID:  studentID,
		Kind:    KindReminder,
		Title:   "Interview Reminder",
		Message: fmt.Sprintf("Don't forget your interview tomorrow at %s at %s.", start.Format(clockLayout), venue),
	}
}
