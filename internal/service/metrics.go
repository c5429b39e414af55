package service

import "github.com/prometheus/client_golang/prometheus"

var (
	signupTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "auth_signup_total", Help: "Signup attempts by result"},
		[]string{"result"},
	)
	signinTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "auth_signin_total", Help: "Signin attempts by result"},
		[]string{"result"},
	)
)

func init() { prometheus.MustRegister(signupTotal, signinTotal) }
