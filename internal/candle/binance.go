package candle

import (
	"context"
	"fmt"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
)

// BinanceTransport adapts a spot binance.Client to the Backfiller and
// Streamer interfaces. It is the concrete market-data transport named in
// the market-data boundary; everything above this file only depends on the
// interfaces.
type BinanceTransport struct {
	client *binance.Client
}

// NewBinanceTransport wraps an already-constructed client (shared with the
// broker adapter in internal/exchange).
func NewBinanceTransport(client *binance.Client) *BinanceTransport {
	return &BinanceTransport{client: client}
}

func (t *BinanceTransport) Backfill(instrument string, tf Timeframe, limit int) ([]Candle, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	klines, err := t.client.NewKlinesService().
		Symbol(instrument).
		Interval(string(tf)).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s/%s: %w", instrument, tf, err)
	}

	out := make([]Candle, 0, len(klines))
	for _, k := range klines {
		c, err := klineToCandle(k.OpenTime, k.CloseTime, k.Open, k.High, k.Low, k.Close, k.Volume)
		if err != nil {
			return nil, fmt.Errorf("parse kline %s/%s: %w", instrument, tf, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (t *BinanceTransport) Stream(instrument string, tf Timeframe, fn func(Event), errFn func(error)) (func(), error) {
	wsHandler := func(event *binance.WsKlineEvent) {
		c, err := klineEventToCandle(event)
		if err != nil {
			errFn(fmt.Errorf("parse ws kline %s/%s: %w", instrument, tf, err))
			return
		}
		fn(Event{
			Instrument: instrument,
			Timeframe:  tf,
			Candle:     c,
			IsFinal:    event.Kline.IsFinal,
		})
	}

	errHandler := func(err error) {
		errFn(err)
	}

	done, stop, err := binance.WsKlineServe(instrument, string(tf), wsHandler, errHandler)
	if err != nil {
		return nil, fmt.Errorf("binance ws kline subscribe %s/%s: %w", instrument, tf, err)
	}

	stopFn := func() {
		close(stop)
		<-done
	}
	return stopFn, nil
}

func klineEventToCandle(event *binance.WsKlineEvent) (Candle, error) {
	k := event.Kline
	return klineToCandle(k.StartTime, k.EndTime, k.Open, k.High, k.Low, k.Close, k.Volume)
}

func klineToCandle(openMs, closeMs int64, open, high, low, close, volume string) (Candle, error) {
	o, err := strconv.ParseFloat(open, 64)
	if err != nil {
		return Candle{}, fmt.Errorf("open: %w", err)
	}
	h, err := strconv.ParseFloat(high, 64)
	if err != nil {
		return Candle{}, fmt.Errorf("high: %w", err)
	}
	l, err := strconv.ParseFloat(low, 64)
	if err != nil {
		return Candle{}, fmt.Errorf("low: %w", err)
	}
	cl, err := strconv.ParseFloat(close, 64)
	if err != nil {
		return Candle{}, fmt.Errorf("close: %w", err)
	}
	v, err := strconv.ParseFloat(volume, 64)
	if err != nil {
		return Candle{}, fmt.Errorf("volume: %w", err)
	}

	return Candle{
		OpenTime:  time.UnixMilli(openMs).UTC(),
		CloseTime: time.UnixMilli(closeMs).UTC(),
		Open:      o,
		High:      h,
		Low:       l,
		Close:     cl,
		Volume:    v,
	}, nil
}
