// Package gateway is the messaging-gateway boundary. It parses inbound
// webhook deliveries into InboundMessage values and sends OutboundMessage
// replies through the gateway's REST API. The wire format is the Twilio
// WhatsApp one: form-encoded webhooks and a Messages.json endpoint.
package gateway
