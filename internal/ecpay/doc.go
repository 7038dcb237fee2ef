// Package ecpay connects to ECPay's AlertBox donation hub. The AlertBox page
// embeds a short-lived JWT; that token authorizes a SignalR connection on
// which ECPay pushes each donation to the broadcaster's account id.
package ecpay
