package testdata

func watchFeedback(fb CustomerFeedback) {
	done := make(chan struct{})
	go func() {
		// escalate urgent feedback from the watcher
		alert := escalate(fb)
		_ = alert
		close(done)
	}()
	<-done
}
