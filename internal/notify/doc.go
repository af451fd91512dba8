// Package notify holds notifiers that do not need an external service.
//
// LogNotifier writes every notification to the log and is used when SMTP is
// not configured. The email subpackage sends real mail.
package notify
