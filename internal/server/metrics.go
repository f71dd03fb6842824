package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atomic_cloud_sim_requests_total",
		Help: "Manage service calls handled by the simulator.",
	}, []string{"method", "code"})

	serversScheduled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atomic_cloud_sim_servers_scheduled_total",
		Help: "Servers scheduled by the simulator.",
	})

	usersTransferred = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atomic_cloud_sim_users_transferred_total",
		Help: "Users moved by transfer requests.",
	})
)
